package observability

// Metric name prefix
const (
	MetricPrefix = "mort"
)

// Metric names
const (
	// Chat transport metrics
	MessagesHandledTotal = MetricPrefix + ".chat.messages_handled_total"

	// Game metrics
	GamesSubmittedTotal = MetricPrefix + ".games.submitted_total"

	// Reconciler metrics
	EventsReconciledTotal = MetricPrefix + ".reconciler.events_total"
	EventsSkippedTotal    = MetricPrefix + ".reconciler.events_skipped_total"

	// Wallet metrics
	TransfersTotal = MetricPrefix + ".wallet.transfers_total"

	// Chain subscription metrics
	ChainReconnectsTotal = MetricPrefix + ".chain.reconnects_total"

	// Database metrics
	DatabaseQueriesTotal  = MetricPrefix + ".database.queries_total"
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	LabelGame      = "game"
	LabelEventType = "event_type"
	LabelReason    = "reason"

	// Database labels
	LabelRepository = "repository"
	LabelMethod     = "method"
)

// Skip reasons for duplicate or unmatched events
const (
	SkipReasonNoRecord  = "no_record"
	SkipReasonDuplicate = "duplicate"
)
