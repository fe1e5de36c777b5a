package testsupport

// schemaSQL is the DDL for the fixed contracts/links/strings schema the
// compiler hard-codes against (internal/contract/columns.go). It exists
// only to give compiled SQL something real to run against in tests; this
// module never introspects or migrates a live schema itself.
const schemaSQL = `
DROP TABLE IF EXISTS links CASCADE;
DROP TABLE IF EXISTS cards CASCADE;
DROP TABLE IF EXISTS strings CASCADE;

CREATE TABLE strings (
	id     SERIAL PRIMARY KEY,
	string TEXT NOT NULL UNIQUE
);

CREATE TABLE cards (
	id                 UUID PRIMARY KEY,
	slug               TEXT NOT NULL,
	version_major      INTEGER NOT NULL DEFAULT 1,
	version_minor      INTEGER NOT NULL DEFAULT 0,
	version_patch      INTEGER NOT NULL DEFAULT 0,
	version_prerelease TEXT NOT NULL DEFAULT '',
	version_build      TEXT NOT NULL DEFAULT '',
	version            TEXT GENERATED ALWAYS AS (
		version_major || '.' || version_minor || '.' || version_patch ||
		CASE WHEN version_prerelease = '' THEN '' ELSE '-' || version_prerelease END ||
		CASE WHEN version_build = '' THEN '' ELSE '+' || version_build END
	) STORED,
	type               TEXT NOT NULL,
	name               TEXT,
	tags               TEXT[] NOT NULL DEFAULT '{}',
	markers            TEXT[] NOT NULL DEFAULT '{}',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ,
	active             BOOLEAN NOT NULL DEFAULT TRUE,
	requires           JSONB[] NOT NULL DEFAULT '{}',
	capabilities       JSONB[] NOT NULL DEFAULT '{}',
	linked_at          JSONB NOT NULL DEFAULT '{}',
	links              JSONB NOT NULL DEFAULT '{}',
	data               JSONB NOT NULL DEFAULT '{}',
	UNIQUE (slug, version_major, version_minor, version_patch, version_prerelease)
);

CREATE INDEX cards_type_idx ON cards (type);
CREATE INDEX cards_slug_idx ON cards (slug);
CREATE INDEX cards_data_gin_idx ON cards USING GIN (data);
CREATE INDEX cards_markers_gin_idx ON cards USING GIN (markers);

CREATE TABLE links (
	id      UUID PRIMARY KEY,
	forward BOOLEAN NOT NULL,
	from_id UUID NOT NULL REFERENCES cards (id) ON DELETE CASCADE,
	to_id   UUID NOT NULL REFERENCES cards (id) ON DELETE CASCADE,
	name_id INTEGER NOT NULL REFERENCES strings (id)
);

CREATE INDEX links_from_idx ON links (from_id, name_id);
CREATE INDEX links_to_idx ON links (to_id, name_id);
`
