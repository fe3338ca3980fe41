package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var sqliteMigrations = []migration{
	{
		Version: 1,
		Name:    "create itineraries",
		SQL: `
			CREATE TABLE itineraries (
				conversation_id TEXT PRIMARY KEY,
				itinerary_json  TEXT NOT NULL CHECK (json_valid(itinerary_json)),
				created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
				updated_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
			);

			CREATE TRIGGER itineraries_set_updated_at
			AFTER UPDATE OF itinerary_json ON itineraries
			FOR EACH ROW
			BEGIN
				UPDATE itineraries
				SET updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
				WHERE conversation_id = NEW.conversation_id;
			END;
		`,
	},
}

var postgresMigrations = []migration{
	{
		Version: 1,
		Name:    "create itineraries",
		SQL: `
			create table if not exists itineraries (
				conversation_id text primary key,
				itinerary_json  jsonb not null,
				created_at      timestamptz not null default now(),
				updated_at      timestamptz not null default now()
			);

			create or replace function set_updated_at()
			returns trigger as $fn$
			begin
				new.updated_at = now();
				return new;
			end;
			$fn$ language plpgsql;

			do $do$
			begin
				if not exists (
					select 1 from pg_trigger where tgname = 'itineraries_set_updated_at'
				) then
					create trigger itineraries_set_updated_at
					before update on itineraries
					for each row
					execute function set_updated_at();
				end if;
			end
			$do$;
		`,
	},
}
