// Package strategy implements the consensus store: strategies, their vote
// counters and the append-only report log, backed by PostgreSQL.
package strategy

// successRateExpr is the computed success rate used for ranking and
// thresholds.  Every stored strategy has at least one vote, the CASE only
// guards hand-inserted rows.
const successRateExpr = `CASE WHEN (success_count + fail_count) > 0
     THEN success_count::float8 / (success_count + fail_count)
     ELSE 0 END`

const strategyColumns = `id, provider_id, service_id, configuration, configuration_hash,
       success_count, fail_count, avg_latency_ms, status, first_reported, last_confirmed`

// rankOrder orders by success rate, then most recent confirmation.  The id
// tie-break keeps the order total.
const rankOrder = `ORDER BY ` + successRateExpr + ` DESC, last_confirmed DESC NULLS LAST, id ASC`

// SQL queries for the consensus store.
const (
	// queryUpsertSuccess inserts a strategy on its first report or
	// increments success_count, folding the latency into the running mean.
	// The row lock taken by ON CONFLICT DO UPDATE serializes concurrent
	// reports for the same triple.  The SET clause sees pre-update values
	// through the table name.  (xmax = 0) is true only for fresh inserts.
	queryUpsertSuccess = `
INSERT INTO strategies
    (provider_id, service_id, configuration, configuration_hash,
     success_count, fail_count, avg_latency_ms, status, first_reported, last_confirmed)
VALUES ($1, $2, $3::jsonb, $4, 1, 0, $5, 'unconfirmed', $6, $6)
ON CONFLICT (provider_id, service_id, configuration_hash)
DO UPDATE SET
    success_count  = strategies.success_count + 1,
    avg_latency_ms = (strategies.avg_latency_ms * strategies.success_count + EXCLUDED.avg_latency_ms)
                     / (strategies.success_count + 1),
    last_confirmed = GREATEST(strategies.last_confirmed, EXCLUDED.last_confirmed)
RETURNING id, success_count, fail_count, (xmax = 0)`

	// queryUpsertFailure is the failure counterpart; it never touches the
	// latency average or last_confirmed.
	queryUpsertFailure = `
INSERT INTO strategies
    (provider_id, service_id, configuration, configuration_hash,
     success_count, fail_count, avg_latency_ms, status, first_reported, last_confirmed)
VALUES ($1, $2, $3::jsonb, $4, 0, 1, 0, 'unconfirmed', $5, NULL)
ON CONFLICT (provider_id, service_id, configuration_hash)
DO UPDATE SET
    fail_count = strategies.fail_count + 1
RETURNING id, success_count, fail_count, (xmax = 0)`

	// queryLockFingerprint serializes report transactions of one
	// fingerprint so the quota check and the report insert are atomic.
	queryLockFingerprint = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	queryUpdateStatus = `UPDATE strategies SET status = $2 WHERE id = $1`

	queryInsertReport = `
INSERT INTO reports (id, strategy_id, fingerprint, success, latency_ms, client_version, reported_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// queryLocalStrategies returns recommendable strategies for an exact
	// provider × service pair.
	// Parameters: $1 = provider_id, $2 = service_id, $3 = limit.
	queryLocalStrategies = `
SELECT ` + strategyColumns + `
FROM strategies
WHERE provider_id = $1
  AND service_id = $2
  AND status IN ('verified', 'unconfirmed')
` + rankOrder + `
LIMIT $3`

	// queryFallbackStrategies returns proven strategies for the service
	// from every other provider.
	// Parameters: $1 = service_id, $2 = excluded provider_id,
	// $3 = minimum success rate, $4 = limit.
	queryFallbackStrategies = `
SELECT ` + strategyColumns + `
FROM strategies
WHERE service_id = $1
  AND provider_id <> $2
  AND status = 'verified'
  AND ` + successRateExpr + ` >= $3
` + rankOrder + `
LIMIT $4`

	// queryServiceCatalog joins the catalog with per-service counts of
	// recommendable strategies for one provider.
	queryServiceCatalog = `
SELECT sc.id, sc.display_name, sc.category, sc.main_domain, sc.icon_emoji,
       COALESCE(cnt.strategy_count, 0) AS strategy_count
FROM services_catalog sc
LEFT JOIN (
    SELECT service_id, COUNT(*) AS strategy_count
    FROM strategies
    WHERE provider_id = $1
      AND status IN ('verified', 'unconfirmed')
    GROUP BY service_id
) cnt ON cnt.service_id = sc.id
ORDER BY strategy_count DESC, sc.display_name`

	queryStatusCounts = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 'verified'),
       COUNT(*) FILTER (WHERE status = 'unconfirmed'),
       COUNT(*) FILTER (WHERE status = 'degraded'),
       COUNT(*) FILTER (WHERE status = 'stale')
FROM strategies`

	// queryCountReportsSince backs the sliding rate-limit window.
	// Parameters: $1 = fingerprint, $2 = window start (exclusive).
	queryCountReportsSince = `
SELECT COUNT(*) FROM reports
WHERE fingerprint = $1
  AND reported_at > $2`

	// queryTrySweepLock takes a transaction-scoped advisory lock so only one
	// replica sweeps at a time.
	queryTrySweepLock = `SELECT pg_try_advisory_xact_lock($1)`

	// queryMarkStale demotes strategies last confirmed before the cutoff.
	// A NULL last_confirmed never matches: never-confirmed strategies are
	// left to the rate rule.
	// Parameters: $1 = cutoff.
	queryMarkStale = `
UPDATE strategies
SET status = 'stale'
WHERE last_confirmed < $1
  AND status <> 'stale'`

	// queryMarkDegraded demotes well-voted strategies with a poor success
	// rate.  Stale rows are exempt.
	// Parameters: $1 = min votes, $2 = rate threshold (exclusive).
	queryMarkDegraded = `
UPDATE strategies
SET status = 'degraded'
WHERE (success_count + fail_count) >= $1
  AND ` + successRateExpr + ` < $2
  AND status NOT IN ('stale', 'degraded')`
)

// sweepLockKey identifies the maintenance sweep advisory lock.
const sweepLockKey int64 = 0x706f64736f73
