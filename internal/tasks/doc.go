/*
Package tasks tracks long-running background jobs that clients poll.

A Task moves forward only: starting, processing, then complete or failed.
The Store hands out one Handle per task and only that handle can change the
task; Get and List return copies. Updates that would move a task backwards
or touch a finished task fail with ErrInvalidTransition.

The Supervisor runs each job in its own goroutine under a maximum runtime
and turns errors, panics and deadline overruns into failed tasks.
*/
package tasks
