package ytdlp

import "fmt"

// Strategy is one fully formed yt-dlp invocation.
type Strategy struct {
	Label       string
	Args        []string
	UsesCookies bool
	Degraded    bool
	// PlainClient marks variants that present as an ordinary web client; they
	// are skipped once a restricted protocol marker has been seen.
	PlainClient bool
	Browser     string
}

// Invocation is the command a job wants downloaded, before strategy layering.
type Invocation struct {
	Base    []string
	Cookies []string
	Extra   []string
	DestDir string
}

type descriptor struct {
	label       string
	clients     string
	options     []string
	usesCookies bool
	degraded    bool
	plainClient bool
}

// strategyTable lists the fixed strategies, most reliable first.
var strategyTable = []descriptor{
	{label: "tv_embedded client", clients: "player_client=tv_embedded,mediaconnect", usesCookies: true},
	{label: "Android + iOS", clients: "player_client=android,ios", usesCookies: true},
	{label: "mweb client", clients: "player_client=mweb", usesCookies: true, plainClient: true},
	{label: "Android + IPv4", clients: "player_client=android", options: []string{"--force-ipv4"}, usesCookies: true},
	{label: "Direct", usesCookies: true, plainClient: true},
	{label: "IPv4 + sleep", options: []string{"--force-ipv4", "--sleep-interval", "3", "--max-sleep-interval", "8"}, usesCookies: true},
	{label: "Single-stream fallback", clients: "player_client=android,tv_embedded", usesCookies: true, degraded: true},
}

// Browser sweep templates, applied once per browser in two passes.
var (
	sweepCookies = descriptor{
		label:   "Cookies (%s) + android",
		clients: "player_client=android,tv_embedded",
		options: []string{"--force-ipv4"},
	}
	sweepFallback = descriptor{
		label:    "Fallback + %s",
		clients:  "player_client=android",
		degraded: true,
	}
)

// BuildStrategies expands the descriptor table over inv. When inv carries no
// cookie source, each browser in sweep adds a cookie-backed strategy followed
// by a second pass of degraded ones.
func BuildStrategies(inv Invocation, sweep []string) []Strategy {
	out := make([]Strategy, 0, len(strategyTable)+2*len(sweep))
	for _, d := range strategyTable {
		out = append(out, d.build(inv, inv.Cookies, ""))
	}
	if len(inv.Cookies) > 0 {
		return out
	}
	for _, browser := range sweep {
		out = append(out, sweepCookies.build(inv, browserCookies(browser), browser))
	}
	for _, browser := range sweep {
		out = append(out, sweepFallback.build(inv, browserCookies(browser), browser))
	}
	return out
}

func (d descriptor) build(inv Invocation, cookies []string, browser string) Strategy {
	label := d.label
	if browser != "" {
		label = fmt.Sprintf(d.label, browser)
	}
	args := append([]string(nil), inv.Base...)
	if d.degraded {
		args = degradeFormat(args)
	}
	usesCookies := (d.usesCookies || browser != "") && len(cookies) > 0
	if usesCookies {
		args = append(args, cookies...)
	}
	args = append(args, inv.Extra...)
	if d.clients != "" {
		args = append(args, "--extractor-args", "youtube:"+d.clients)
	}
	args = append(args, d.options...)
	if inv.DestDir != "" {
		args = append(args, "-P", inv.DestDir)
	}
	return Strategy{
		Label:       label,
		Args:        args,
		UsesCookies: usesCookies,
		Degraded:    d.degraded,
		PlainClient: d.plainClient,
		Browser:     browser,
	}
}

func browserCookies(browser string) []string {
	return []string{"--cookies-from-browser", browser}
}

var constrainedFormatMarkers = []string{"ext=", "height", "vcodec", "acodec", "bestvideo", "bv*"}

// degradeFormat rewrites a constrained format selector to plain "best". Only the
// value following -f/--format is touched.
func degradeFormat(args []string) []string {
	out := append([]string(nil), args...)
	for i := 0; i < len(out)-1; i++ {
		if out[i] != "-f" && out[i] != "--format" {
			continue
		}
		if containsAny(out[i+1], constrainedFormatMarkers) {
			out[i+1] = "best"
		}
		i++
	}
	return out
}

