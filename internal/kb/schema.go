package kb

// Statements shared by the SQL backends. Placeholders are rewritten per driver.
const (
	createPageTable = `CREATE TABLE IF NOT EXISTS page (
	id      BIGINT PRIMARY KEY,
	title   TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT '[]'
)`
	createDictionaryTable = `CREATE TABLE IF NOT EXISTS dictionary (
	surface_form TEXT NOT NULL,
	page_id      BIGINT NOT NULL REFERENCES page(id),
	count        INTEGER NOT NULL,
	PRIMARY KEY (surface_form, page_id)
)`
	createLinkTable = `CREATE TABLE IF NOT EXISTS link (
	source      BIGINT NOT NULL,
	destination BIGINT NOT NULL,
	PRIMARY KEY (source, destination)
)`
	createLinkDestinationIndex = `CREATE INDEX IF NOT EXISTS idx_link_destination ON link (destination, source)`

	lookupCandidatesQuery = `SELECT p.id, p.title, d.count, p.context
FROM dictionary d
INNER JOIN page p ON p.id = d.page_id
WHERE d.surface_form = $1
ORDER BY p.id`
	sourceCountQuery       = `SELECT count(source) FROM link WHERE destination = $1`
	intersectionCountQuery = `SELECT count(*)
FROM link a
INNER JOIN link b ON a.source = b.source
WHERE a.destination = $1 AND b.destination = $2`

	upsertPage = `INSERT INTO page (id, title, context) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET title = excluded.title, context = excluded.context`
	upsertDictionary = `INSERT INTO dictionary (surface_form, page_id, count) VALUES ($1, $2, $3)
ON CONFLICT (surface_form, page_id) DO UPDATE SET count = excluded.count`
	insertLink = `INSERT INTO link (source, destination) VALUES ($1, $2)
ON CONFLICT (source, destination) DO NOTHING`
)

var schemaStatements = []string{
	createPageTable,
	createDictionaryTable,
	createLinkTable,
	createLinkDestinationIndex,
}
