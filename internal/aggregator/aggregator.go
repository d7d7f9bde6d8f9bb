package aggregator

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jobinsight/jobinsight/internal/store"
)

type Config struct {
	MinEventSeconds int
	TitleRules      []Rule
	AppBlacklist    []string
	TitleBlacklist  []string
}

func DefaultConfig() Config {
	return Config{
		MinEventSeconds: 10,
	}
}

// Key identifies one bucket: the application plus either the normalized
// window title or, for browser events, the extracted domain.
type Key struct {
	App     string
	Subject string
}

type Bucket struct {
	Key          Key
	TotalSeconds int
	Count        int
	FirstSeen    time.Time
	LastSeen     time.Time
}

// Stats reports what the noise filter removed. Filtered events are counted,
// never dropped silently.
type Stats struct {
	TotalEvents    int
	BelowThreshold int
	Blacklisted    int
	AFKEvents      int
	Buckets        int
}

var defaultAppBlacklist = []string{
	"explorer.exe",
	"applicationframehost.exe",
	"systemsettings.exe",
	"lockapp.exe",
	"searchui.exe",
	"shellexperiencehost.exe",
	"textinputhost.exe",
	"cmd.exe",
	"powershell.exe",
	"conhost.exe",
	"taskmgr.exe",
	"svchost.exe",
	"runtimebroker.exe",
	"searchhost.exe",
	"startmenuexperiencehost.exe",
	"csrss.exe",
	"wmiprvse.exe",
	"sihost.exe",
	"ctfmon.exe",
	"smartscreen.exe",
}

var defaultTitleBlacklist = []string{
	"new tab",
	"untitled",
	"loading",
	"home",
	"settings",
	"downloads",
	"program manager",
	"start",
	"search",
	"task switching",
	"notification center",
	"volume control",
	"network flyout",
	"input indicator",
	"clock flyout",
	"action center",
	"battery flyout",
	"calendar flyout",
	"desktop",
}

var pureNumberTitle = regexp.MustCompile(`^\d+$`)

type Aggregator struct {
	config     Config
	normalizer *Normalizer
	appDeny    map[string]struct{}
	titleDeny  map[string]struct{}
}

func NewAggregator(cfg Config) (*Aggregator, error) {
	normalizer, err := NewNormalizer(cfg.TitleRules)
	if err != nil {
		return nil, err
	}

	return &Aggregator{
		config:     cfg,
		normalizer: normalizer,
		appDeny:    denySet(defaultAppBlacklist, cfg.AppBlacklist),
		titleDeny:  denySet(defaultTitleBlacklist, cfg.TitleBlacklist),
	}, nil
}

func denySet(defaults, extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(defaults)+len(extra))
	for _, name := range defaults {
		set[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range extra {
		set[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return set
}

// Aggregate groups events into buckets keyed by (app, subject), sorted by
// descending total duration. Ties break by descending occurrence count, then
// lexicographically by key. Pure function of its input and configuration.
func (a *Aggregator) Aggregate(events []store.Event) ([]Bucket, Stats) {
	stats := Stats{TotalEvents: len(events)}
	grouped := make(map[Key]*Bucket)

	for _, ev := range events {
		if ev.Type == "afk" {
			stats.AFKEvents++
			continue
		}
		if ev.Duration < a.config.MinEventSeconds {
			stats.BelowThreshold++
			continue
		}

		app := a.normalizer.CleanTitle(ev.App)

		var subject string
		if ev.Type == "web" && ev.URL != "" {
			subject = ExtractDomain(ev.URL)
		} else {
			subject = a.normalizer.CleanTitle(ev.Title)
			if a.isNoiseTitle(subject) {
				stats.Blacklisted++
				continue
			}
		}

		if a.isNoiseApp(app) || (app == "" && subject == "") {
			stats.Blacklisted++
			continue
		}

		key := Key{App: app, Subject: subject}
		bucket, ok := grouped[key]
		if !ok {
			bucket = &Bucket{Key: key, FirstSeen: ev.Timestamp, LastSeen: ev.Timestamp}
			grouped[key] = bucket
		}

		bucket.TotalSeconds += ev.Duration
		bucket.Count++
		if ev.Timestamp.Before(bucket.FirstSeen) {
			bucket.FirstSeen = ev.Timestamp
		}
		if ev.Timestamp.After(bucket.LastSeen) {
			bucket.LastSeen = ev.Timestamp
		}
	}

	buckets := make([]Bucket, 0, len(grouped))
	for _, bucket := range grouped {
		buckets = append(buckets, *bucket)
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].TotalSeconds != buckets[j].TotalSeconds {
			return buckets[i].TotalSeconds > buckets[j].TotalSeconds
		}
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		if buckets[i].Key.App != buckets[j].Key.App {
			return buckets[i].Key.App < buckets[j].Key.App
		}
		return buckets[i].Key.Subject < buckets[j].Key.Subject
	})

	stats.Buckets = len(buckets)
	return buckets, stats
}

func (a *Aggregator) isNoiseApp(app string) bool {
	if app == "" {
		return false
	}
	_, ok := a.appDeny[strings.ToLower(strings.TrimSpace(app))]
	return ok
}

func (a *Aggregator) isNoiseTitle(title string) bool {
	if title == "" {
		return false
	}
	name := strings.ToLower(strings.TrimSpace(title))
	if _, ok := a.titleDeny[name]; ok {
		return true
	}
	if pureNumberTitle.MatchString(name) {
		return true
	}
	// Single characters are window chrome noise, except a few meaningful
	// one-letter names (C, R, V).
	if len([]rune(name)) < 2 && name != "c" && name != "r" && name != "v" {
		return true
	}
	return false
}
