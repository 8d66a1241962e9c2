/*
Package session implements project lifecycle management and persistence orchestration.

A Manager serializes access to stored project documents per project ID, optionally
coordinating with other processes through a distributed lock. Opening a project builds a
live compositor engine from its document and registers its node identifiers in a
process-scoped table; closing the project tears both down.
*/
package session
