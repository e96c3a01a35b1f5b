package mysql

// One row per property: a draft slot, a nullable published slot and the
// publish counter. Content columns hold the JSON form of domain.Content.
const insertDocumentSQL = `
INSERT INTO property_documents
  (id, status, archived, is_published, version, draft_revision,
   listing_languages, initial_name, draft, published, created_at, updated_at, published_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateDocumentSQL = `
UPDATE property_documents SET
  status            = ?,
  archived          = ?,
  is_published      = ?,
  version           = ?,
  draft_revision    = ?,
  listing_languages = ?,
  initial_name      = ?,
  draft             = ?,
  published         = ?,
  updated_at        = ?,
  published_at      = ?
WHERE id = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const selectColumns = `
SELECT
  id, status, archived, is_published, version, draft_revision,
  listing_languages, initial_name, draft, published,
  created_at, updated_at, published_at
FROM property_documents
`

const getDocumentSQL = selectColumns + `WHERE id = ?`

// Row lock for the per-id critical section; other ids are unaffected.
const getDocumentForUpdateSQL = selectColumns + `WHERE id = ? FOR UPDATE`

const listDocumentsSQL = selectColumns + `ORDER BY id`
