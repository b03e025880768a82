package indexer

// Ordered field-path lists for extracting values from indexer responses.
// The remote contract is a union of possible shapes, not a single schema;
// these lists are the one place contract drift gets absorbed. Order matters:
// the first resolving path wins.
var (
	TranscriptPaths = []string{
		"transcript",
		"transcript_json",
		"transcriptJson",
		"outputs.transcript",
		"outputs.transcript_json",
		"outputs.transcriptJson",
	}

	OcrPaths = []string{
		"ocr",
		"ocr_json",
		"ocrJson",
		"outputs.ocr",
		"outputs.ocr_json",
		"outputs.ocrJson",
	}

	TranscriptSourcePaths = []string{
		"metrics.transcript_source",
		"metrics.transcriptSource",
		"transcript_source",
		"transcriptSource",
	}

	LaneUsedPaths = []string{
		"metrics.lane_used",
		"metrics.laneUsed",
		"lane_used",
		"laneUsed",
		"lane",
	}

	DurationMsPaths = []string{
		"metrics.duration_ms",
		"metrics.durationMs",
		"duration_ms",
		"durationMs",
	}

	PipelineVersionPaths = []string{
		"pipeline_version",
		"pipelineVersion",
		"metrics.pipeline_version",
		"metrics.pipelineVersion",
	}

	IndexingRunIDPaths = []string{
		"indexing_run_id",
		"indexingRunId",
		"run_id",
		"runId",
		"indexingRun.id",
	}

	FailureMessagePaths = []string{
		"error",
		"message",
		"details",
	}
)
