package core

// Schema creates the tables for Root and Child if they do not exist yet.
const Schema = `
CREATE TABLE IF NOT EXISTS roots (
	"id" text PRIMARY KEY,
	"name" text NOT NULL,
	"created_at" timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS root_children (
	"id" text PRIMARY KEY,
	"root_id" text NOT NULL REFERENCES roots ("id"),
	"name" text NOT NULL
);
`
