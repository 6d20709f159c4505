package lead

var defaultDetector = MustNew(DefaultGrammar())

// Default returns the detector for DefaultGrammar.
func Default() *Detector { return defaultDetector }

func IsLeadCandidate(text string) bool { return defaultDetector.IsLeadCandidate(text) }

func IsFinalApplication(text string) bool { return defaultDetector.IsFinalApplication(text) }

func Parse(text string) (Fields, bool) { return defaultDetector.Parse(text) }

func FormatForDelivery(text string, userID int64) string {
	return defaultDetector.FormatForDelivery(text, userID)
}

func Validate(text string) (bool, string) { return defaultDetector.Validate(text) }
