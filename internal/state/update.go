package state

// Update is the partial write-back a stage returns after observing an
// immutable State snapshot. Every field is optional; a stage sets only
// the pointer fields it owns. Pointer-ness (rather than the zero value)
// is what distinguishes "not written" from "written as zero/empty".
type Update struct {
	Stage string // the stage name this update came from

	Disciplines        *[]string
	Mode               *Mode
	RoutingHint        *string
	IterationCount     *int
	Verses             *[]VerseRecord
	TafseerContext     *string
	LinguisticAnalysis *LinguisticAnalysis
	ScienceFindings    *[]ScienceFinding
	TafseerFindings    *TafseerFindings
	HumanitiesFindings *[]HumanitiesFinding
	Synthesis          *string
	ConfidenceTier     *ConfidenceTier
	QualityScore       *float64
	QualityIssues      *[]string
	DiscoveryID        *string
	ShouldDeepen       *bool

	// StreamingAppend is this stage's disjoint tail contribution to the
	// event log for the current super-step.
	StreamingAppend []ProgressRecord
}

func strPtr(s string) *string           { return &s }
func intPtr(i int) *int                 { return &i }
func boolPtr(b bool) *bool              { return &b }
func floatPtr(f float64) *float64       { return &f }
func modePtr(m Mode) *Mode              { return &m }
func tierPtr(t ConfidenceTier) *ConfidenceTier { return &t }

// StrPtr, IntPtr, BoolPtr, FloatPtr, ModePtr, TierPtr are exported
// convenience constructors stages use when building an Update literal.
var (
	StrPtr   = strPtr
	IntPtr   = intPtr
	BoolPtr  = boolPtr
	FloatPtr = floatPtr
	ModePtr  = modePtr
	TierPtr  = tierPtr
)
