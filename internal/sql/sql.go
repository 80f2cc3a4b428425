// Package sql carries the embedded schema migrations and named queries.
package sql

import "embed"

// Migrations holds the idempotent DDL files, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/register_source_file.sql
var RegisterSourceFile string

//go:embed queries/lookup_source_file.sql
var LookupSourceFile string

//go:embed queries/update_source_status.sql
var UpdateSourceStatus string

//go:embed queries/record_price_history.sql
var RecordPriceHistory string

//go:embed queries/upsert_services.sql
var UpsertServices string

//go:embed queries/delete_staging_batch.sql
var DeleteStagingBatch string

//go:embed queries/list_services.sql
var ListServices string

//go:embed queries/list_findings.sql
var ListFindings string
