package dag

// Stage names. Declared as constants rather than free strings so the
// fixed topology and the event-stream translation rules (internal/eventstream)
// can refer to a single source of truth.
const (
	StageRouteQuery     = "route_query"
	StageQuranRAG       = "quran_rag"
	StageLinguistic     = "linguistic"
	StageScience        = "science"
	StageTafseer        = "tafseer"
	StageHumanities     = "humanities"
	StageSynthesis      = "synthesis"
	StageQualityReview  = "quality_review"
	StageKGUpdate       = "kg_update"
)

// Order is the fixed declaration order of the nine stages. It is a
// constant, not a dynamically configured graph, because the topology
// never varies at runtime (SPEC_FULL.md §9, "fallback shape" note).
var Order = []string{
	StageRouteQuery,
	StageQuranRAG,
	StageLinguistic,
	StageScience,
	StageTafseer,
	StageHumanities,
	StageSynthesis,
	StageQualityReview,
	StageKGUpdate,
}

// Topology is the fixed dependency declaration:
//
//	route_query → quran_rag → linguistic → {science, tafseer, humanities}
//	                                          all three → synthesis → quality_review
//	quality_review --deepen--> quran_rag      (loop-back, bounded; not a graph edge)
//	quality_review --complete--> kg_update → END
var Topology = map[string][]string{
	StageRouteQuery:    nil,
	StageQuranRAG:      {StageRouteQuery},
	StageLinguistic:    {StageQuranRAG},
	StageScience:       {StageLinguistic},
	StageTafseer:       {StageLinguistic},
	StageHumanities:    {StageLinguistic},
	StageSynthesis:     {StageScience, StageTafseer, StageHumanities},
	StageQualityReview: {StageSynthesis},
	StageKGUpdate:      {StageQualityReview},
}

// LoopBackTarget is the stage control jumps back to when quality_review
// requests another iteration.
const LoopBackTarget = StageQuranRAG

// NewTopologyGraph constructs a fresh Graph over the fixed topology for
// one orchestration run.
func NewTopologyGraph() *Graph {
	return NewGraph(Topology, Order)
}
