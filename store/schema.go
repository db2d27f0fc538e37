package store

import "strings"

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS nodes (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    pos_x       DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y       DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_z       DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_unit    TEXT NOT NULL DEFAULT 'interplanetary',
    status      TEXT NOT NULL DEFAULT 'active',
    population  BIGINT NOT NULL DEFAULT 0,
    resources   {{json}} NOT NULL DEFAULT '[]',
    partners    {{json}} NOT NULL DEFAULT '[]',
    latency_ns  BIGINT NOT NULL DEFAULT 0,
    zone        TEXT NOT NULL DEFAULT '',
    updated_at  {{ts}} NOT NULL DEFAULT ({{now}})
);

CREATE TABLE IF NOT EXISTS orders (
    id                 TEXT PRIMARY KEY,
    origin_id          TEXT NOT NULL,
    destination_id     TEXT NOT NULL,
    items              {{json}} NOT NULL DEFAULT '[]',
    tier               TEXT NOT NULL DEFAULT '',
    distance           DOUBLE PRECISION NOT NULL DEFAULT 0,
    distance_unit      TEXT NOT NULL DEFAULT 'interplanetary',
    estimated_delivery {{ts}} NOT NULL,
    status             TEXT NOT NULL DEFAULT 'pending',
    total_cost         TEXT NOT NULL DEFAULT '0',
    currency           TEXT NOT NULL DEFAULT '',
    comm_log           {{json}} NOT NULL DEFAULT '[]',
    created_at         {{ts}} NOT NULL,
    updated_at         {{ts}} NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS agreements (
    id          TEXT PRIMARY KEY,
    node_a      TEXT NOT NULL,
    node_b      TEXT NOT NULL,
    resource    TEXT NOT NULL,
    rate        DOUBLE PRECISION NOT NULL,
    volume      DOUBLE PRECISION NOT NULL,
    frequency   TEXT NOT NULL,
    next_due    {{ts}} NOT NULL,
    active      {{bool}} NOT NULL,
    fire_count  INTEGER NOT NULL DEFAULT 0,
    last_fired  {{ts}},
    ack_count   INTEGER NOT NULL DEFAULT 0,
    last_ack_at {{ts}},
    created_at  {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS outbox (
    id          {{pk}},
    topic       TEXT NOT NULL,
    payload     {{blob}} NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    dst_node    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  {{ts}} NOT NULL DEFAULT ({{now}}),
    sent_at     {{ts}}
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at);

CREATE TABLE IF NOT EXISTS audit_log (
    id          {{pk}},
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  {{ts}} NOT NULL DEFAULT ({{now}})
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
`

// schema renders the table definitions for one dialect.
func schema(d Dialect) string {
	return strings.NewReplacer(
		"{{pk}}", d.AutoIncrementPK(),
		"{{blob}}", d.BlobType(),
		"{{json}}", d.JSONType(),
		"{{ts}}", d.TimestampType(),
		"{{now}}", d.Now(),
		"{{bool}}", d.BoolType(),
	).Replace(schemaTemplate)
}
