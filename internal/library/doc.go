/*
Package library keeps originals, thumbnails and the metadata store
consistent with each other.

It implements the ingestion pipeline used by uploads, the rescan reconciler
that repairs missing or incomplete records, bulk thumbnail regeneration,
the gallery feed and a small file browser over the originals area.

Every read-modify-write of the metadata store goes through one mutex, so an
upload and a rescan never lose each other's records. Thumbnail derivation
and capture-time resolution are injected through the Deriver and
TimeResolver interfaces; production code passes *media.Deriver and
*capturetime.Resolver.
*/
package library
