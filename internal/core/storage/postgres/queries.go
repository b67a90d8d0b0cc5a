package postgres

// SQL for the event store, high-water detection, projection progress,
// projection documents and daemon leases.

const (
	// queryReserveSequences hands out $1 sequence numbers ahead of the insert.
	// nextval is non-transactional: a rolled back append leaves a gap that
	// tombstones close.
	queryReserveSequences = `
		SELECT nextval('events_sequence')
		FROM generate_series(1, $1)
	`

	// querySelectStreamForUpdate locks the stream row for the duration of the append.
	querySelectStreamForUpdate = `
		SELECT version, COALESCE(aggregate_type, '')
		FROM streams
		WHERE id = $1
		FOR UPDATE
	`

	// queryInsertStream creates a stream at version 0. A concurrent creator
	// surfaces as a unique violation.
	queryInsertStream = `
		INSERT INTO streams (id, aggregate_type, tenant_id, version)
		VALUES ($1, NULLIF($2, ''), $3, 0)
	`

	queryUpdateStreamVersion = `
		UPDATE streams
		SET version = $2,
		    aggregate_type = COALESCE(aggregate_type, NULLIF($3, '')),
		    updated_at = now()
		WHERE id = $1
	`

	// queryInsertEvent stores one event at its reserved sequence and returns the commit clock.
	queryInsertEvent = `
		INSERT INTO events (
			seq_id, id, stream_id, version, type, tenant_id,
			causation_id, correlation_id, headers, data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING timestamp
	`

	// queryInsertTombstones closes reserved sequence numbers whose append failed.
	// $1 carries the sequences, $2 a matching array of event ids.
	queryInsertTombstones = `
		INSERT INTO events (seq_id, id, stream_id, version, type, tenant_id, data)
		SELECT t.seq_id, t.id, '__tombstones__', t.seq_id, 'tombstone', '*DEFAULT*', '{}'::jsonb
		FROM unnest($1::bigint[], $2::uuid[]) AS t(seq_id, id)
		ON CONFLICT (seq_id) DO NOTHING
	`

	// queryHighestAssignedSequence reads the sequence generator, not the events table.
	queryHighestAssignedSequence = `
		SELECT last_value, is_called
		FROM events_sequence
	`

	// queryFetchEventsInRange loads (floor, ceiling] for a shard. Empty filter
	// arrays disable the filter and a zero limit means no limit. Tombstones
	// never leave the store.
	queryFetchEventsInRange = `
		SELECT
			e.seq_id, e.id, e.stream_id, e.version, e.type, e.timestamp,
			e.tenant_id, e.causation_id, e.correlation_id, e.headers, e.data
		FROM events e
		LEFT JOIN streams s ON s.id = e.stream_id
		WHERE e.seq_id > $1
		  AND e.seq_id <= $2
		  AND e.type <> 'tombstone'
		  AND (cardinality($3::text[]) = 0 OR e.type = ANY($3::text[]))
		  AND (cardinality($4::text[]) = 0 OR s.aggregate_type = ANY($4::text[]))
		ORDER BY e.seq_id ASC
		LIMIT NULLIF($5, 0)
	`

	queryStreamAggregateType = `
		SELECT aggregate_type
		FROM streams
		WHERE id = $1
	`

	// queryLastContiguousSequence finds the first sequence at or above $1 that is
	// followed by a hole. The seed row makes the answer $1 when $1+1 is missing.
	// $2 hides events committed after the cutoff; NULL disables it.
	queryLastContiguousSequence = `
		SELECT COALESCE(MIN(x.seq_id), $1)
		FROM (
			SELECT s.seq_id, LEAD(s.seq_id) OVER (ORDER BY s.seq_id) AS next_id
			FROM (
				SELECT $1::bigint AS seq_id
				UNION ALL
				SELECT seq_id
				FROM events
				WHERE seq_id > $1
				  AND ($2::timestamptz IS NULL OR timestamp <= $2::timestamptz)
			) s
		) x
		WHERE x.next_id IS NULL OR x.next_id - x.seq_id > 1
	`

	queryNextEventAfter = `
		SELECT seq_id, timestamp
		FROM events
		WHERE seq_id > $1
		ORDER BY seq_id ASC
		LIMIT 1
	`

	queryStoreNow = `SELECT clock_timestamp()`

	// querySaveHighWaterMark never moves the mark backwards.
	querySaveHighWaterMark = `
		INSERT INTO event_progression (name, last_seq_id, version, last_updated)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq_id  = GREATEST(event_progression.last_seq_id, EXCLUDED.last_seq_id),
		    version      = event_progression.version + 1,
		    last_updated = now()
		WHERE event_progression.last_seq_id < EXCLUDED.last_seq_id
	`

	queryInsertProgress = `
		INSERT INTO event_progression (name, last_seq_id, version, last_updated)
		VALUES ($1, $2, 1, now())
	`

	// queryUpdateProgress is the optimistic guard: it only matches when the
	// stored sequence is the one the caller last saw.
	queryUpdateProgress = `
		UPDATE event_progression
		SET last_seq_id = $3, version = version + 1, last_updated = now()
		WHERE name = $1 AND last_seq_id = $2
	`

	querySelectProgressSequence = `
		SELECT last_seq_id
		FROM event_progression
		WHERE name = $1
	`

	querySelectProgress = `
		SELECT name, last_seq_id, version, last_updated
		FROM event_progression
		WHERE name = $1
	`

	querySelectAllProgress = `
		SELECT name, last_seq_id, version, last_updated
		FROM event_progression
		ORDER BY name ASC
	`

	queryDeleteProgress = `DELETE FROM event_progression WHERE name = $1`

	querySelectDocument = `
		SELECT projection, id, tenant_id, data, last_seq_id, updated_at
		FROM projection_documents
		WHERE projection = $1 AND id = $2
	`

	queryListDocuments = `
		SELECT projection, id, tenant_id, data, last_seq_id, updated_at
		FROM projection_documents
		WHERE projection = $1
		ORDER BY id ASC
		LIMIT NULLIF($2, 0)
	`

	queryUpsertDocument = `
		INSERT INTO projection_documents (projection, id, tenant_id, data, last_seq_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (projection, id) DO UPDATE
		SET tenant_id   = EXCLUDED.tenant_id,
		    data        = EXCLUDED.data,
		    last_seq_id = EXCLUDED.last_seq_id,
		    updated_at  = EXCLUDED.updated_at
	`

	queryDeleteDocument = `DELETE FROM projection_documents WHERE projection = $1 AND id = $2`

	queryDeleteProjectionDocuments = `DELETE FROM projection_documents WHERE projection = $1`

	// queryTryAcquireLease takes the lease when it is free, expired or already ours.
	// Zero rows back means another node holds a live lease. Postgres' row lock on
	// the conflicting row serializes competing nodes.
	queryTryAcquireLease = `
		INSERT INTO daemon_leases (resource, node_id, acquired_at, expires_at)
		VALUES ($1, $2, now(), now() + $3::bigint * interval '1 millisecond')
		ON CONFLICT (resource) DO UPDATE
		SET node_id     = EXCLUDED.node_id,
		    acquired_at = CASE
		                      WHEN daemon_leases.node_id = EXCLUDED.node_id THEN daemon_leases.acquired_at
		                      ELSE EXCLUDED.acquired_at
		                  END,
		    expires_at  = EXCLUDED.expires_at
		WHERE daemon_leases.node_id = EXCLUDED.node_id
		   OR daemon_leases.expires_at < now()
		RETURNING resource, node_id, acquired_at, expires_at
	`

	queryReleaseLease = `DELETE FROM daemon_leases WHERE resource = $1 AND node_id = $2`

	querySelectLease = `
		SELECT resource, node_id, acquired_at, expires_at
		FROM daemon_leases
		WHERE resource = $1
	`

	querySelectTenantDatabases = `
		SELECT name, dsn
		FROM tenant_databases
		ORDER BY name ASC
	`
)
