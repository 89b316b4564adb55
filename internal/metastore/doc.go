/*
Package metastore persists the filename to metadata-record mapping that
backs the gallery.

Two backends implement Store:

  - JSONStore writes storage/metadata.json with a temp file and rename
  - SQLiteStore keeps one row per original in storage/metadata.db

The mapping is read and written wholesale. Load never returns an error: a
missing or unreadable document yields an empty Mapping along with a
LoadStatus so callers can log or count the cause. Callers that read, modify
and write the mapping are expected to serialize those sequences themselves.
*/
package metastore
