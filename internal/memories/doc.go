/*
Package memories generates AI-narrated memory collages as background tasks.

A run selects a random number of image originals, captions each one and
rejects captions that look like screenshots or documents, narrates the
accepted photos with their capture date, draws a collage and picks music.
The finished Result is written to the memories area as <task_id>.json next
to <task_id>_collage.png. Failed runs leave neither file behind.
*/
package memories
