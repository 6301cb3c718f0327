package constants

import "time"

var ExtractLimits = struct {
	MaxHeadings      int
	MaxCTAs          int
	MaxCTALength     int
	MaxBodyPreview   int
	MaxResponseBytes int64
}{
	MaxHeadings:      20,
	MaxCTAs:          10,
	MaxCTALength:     50,
	MaxBodyPreview:   5000,
	MaxResponseBytes: 5 << 20, // 5 MiB
}

var PromptLimits = struct {
	BodyPreview int
}{
	BodyPreview: 2000,
}

// StringLimits caps free text in terminal reports.
var StringLimits = struct {
	ReportIssue int
}{
	ReportIssue: 200,
}

var ScraperConfig = struct {
	Timeout   time.Duration
	UserAgent string
}{
	Timeout:   10 * time.Second,
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

var LLMConfig = struct {
	Temperature       float64
	PrimaryMaxTokens  int
	FallbackMaxTokens int
	RequestTimeout    time.Duration
}{
	Temperature:       0.7,
	PrimaryMaxTokens:  4096,
	FallbackMaxTokens: 1024,
	RequestTimeout:    55 * time.Second,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,                // 3 consecutive primary failures open the circuit
	ResetTimeout:     30 * time.Second, // primary is retried after this
}

var RoastConfig = struct {
	Timeout         time.Duration
	AnonDailyLimit  int
	FreePlanCredits int
	FallbackScore   int
	WallSize        int
	DashboardSize   int
	AnonLimitWindow time.Duration
	WallCacheTTL    time.Duration
}{
	Timeout:         60 * time.Second,
	AnonDailyLimit:  3,
	FreePlanCredits: 3,
	FallbackScore:   50,
	WallSize:        24,
	DashboardSize:   50,
	AnonLimitWindow: 24 * time.Hour,
	WallCacheTTL:    time.Minute,
}

var CacheKeys = struct {
	AnonRoastPrefix string
	Wall            string
}{
	AnonRoastPrefix: "roast:anon:",
	Wall:            "roast:wall",
}
