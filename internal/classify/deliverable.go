package classify

import "strings"

// Deliverable types recognized by the keyword heuristic.
const (
	DeliverableDocument = "document"
	DeliverableCode     = "code"
	DeliverableAnalysis = "analysis"
	DeliverableLaunch   = "launch"
	DeliverableGeneric  = "generic"
)

var deliverableKeywords = map[string][]string{
	DeliverableDocument: {"write", "draft", "document", "report", "plan", "spec", "proposal"},
	DeliverableCode:     {"build", "implement", "code", "develop", "fix", "refactor", "deploy", "integrate"},
	DeliverableAnalysis: {"research", "analyze", "evaluate", "investigate", "decide", "compare", "review"},
	DeliverableLaunch:   {"launch", "publish", "release", "announce", "ship"},
}

// DetectDeliverable classifies a description's deliverable type by
// keyword, preferring the type with the most hits.
func DetectDeliverable(description string) string {
	tokens := strings.Fields(strings.ToLower(description))
	best := DeliverableGeneric
	bestHits := 0
	// Stable iteration order keeps detection deterministic on ties.
	for _, kind := range []string{DeliverableDocument, DeliverableCode, DeliverableAnalysis, DeliverableLaunch} {
		hits := 0
		for _, kw := range deliverableKeywords[kind] {
			for _, tok := range tokens {
				if strings.HasPrefix(tok, kw) {
					hits++
				}
			}
		}
		if hits > bestHits {
			best = kind
			bestHits = hits
		}
	}
	return best
}

// compatMatrix scores cross-type compatibility for unequal pairs.
// Analysis output feeds documents and code; code feeds launches.
var compatMatrix = map[[2]string]float64{
	{DeliverableAnalysis, DeliverableDocument}: 0.7,
	{DeliverableAnalysis, DeliverableCode}:     0.6,
	{DeliverableCode, DeliverableLaunch}:       0.7,
	{DeliverableDocument, DeliverableLaunch}:   0.5,
}

// deliverableCompat scores how compatible two deliverable types are in
// [0,1]. Identical types are fully compatible; a generic side is
// weakly compatible with anything.
func deliverableCompat(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == DeliverableGeneric || b == DeliverableGeneric {
		return 0.5
	}
	if v, ok := compatMatrix[[2]string{a, b}]; ok {
		return v
	}
	if v, ok := compatMatrix[[2]string{b, a}]; ok {
		return v
	}
	return 0.2
}
