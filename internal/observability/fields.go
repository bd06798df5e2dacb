package observability

// Standard field names for structured logging. Use these instead of raw strings.
const (
	FieldRunID       = "run_id"
	FieldContentType = "content_type"
	FieldCategory    = "category"
	FieldArticleID   = "article_id"
	FieldSlug        = "slug"
	FieldReason      = "reason"
	FieldDurationMS  = "duration_ms"
	FieldJobCount    = "job_count"
	FieldModel       = "model"
	FieldCommitMode  = "commit_mode"
	FieldResultKind  = "result_kind"

	// Set on every log line describing an article without matching bookkeeping
	FieldConsistencyWarning = "consistency_warning"

	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldRemoteAddr = "remote_addr"
)
