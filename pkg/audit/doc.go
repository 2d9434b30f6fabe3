// Package audit records the administrative write trail: role matrix
// replacements, per-user override replacements, token lifecycle changes,
// and tenant administration. Access resolution reads are deliberately
// not audited; they are high-volume and carry no administrative intent.
//
// # Sinks
//
// The database sink is the primary record:
//
//	store := audit.NewStore(db)
//	dbLogger, _ := audit.NewDBLogger(store)
//
// A file sink can be layered on for log shipping, with the MultiLogger
// fanning events out (primary synchronous, secondaries asynchronous):
//
//	fileLogger, _ := audit.NewFileLogger("/var/log/opshub/audit.log")
//	logger := audit.NewMultiLogger(dbLogger, fileLogger)
//
// # Recording
//
// Handlers emit events through the Recorder, which fills in actor and
// request context and never fails the admin action on a sink error:
//
//	recorder := audit.NewRecorder(logger, log)
//	recorder.MatrixSaved(ctx, r, identity, tenantID, "custom", 3)
//
// # Querying and export
//
// The Store supports filtered search, and Handlers exposes it to super
// admins at /audit/events. The S3Exporter ships NDJSON batches to object
// storage on a schedule so the trail survives database retention cleanup.
package audit
