package collector

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"WealthPulse/internal/model"
)

// Options carries what the adapter registry needs from configuration.
type Options struct {
	Client      *http.Client
	FanOut      FanOut
	IBJAAPIKey  string
	GoldAPIKey  string
	Waterfalls  map[model.Dataset][]string // adapter names in preference order
	BaseURLs    map[string]string          // per-adapter endpoint overrides
	RetryPolicy RetryPolicy
}

// DefaultWaterfalls is the provider order used when configuration names none.
var DefaultWaterfalls = map[model.Dataset][]string{
	model.DatasetEquities: {"nse", "groww", "yahoo"},
	model.DatasetIndices:  {"yahoo-indices"},
	model.DatasetGold:     {"ibja", "goldrates", "goldapi"},
	model.DatasetFunds:    {"mfapi"},
}

// Registry builds every known adapter by name.
func Registry(opts Options) map[string]Adapter {
	client := opts.Client
	if client == nil {
		client = NewHTTPClient("")
	}
	all := []Adapter{
		NewNSEAdapter(client, opts.FanOut),
		NewGrowwAdapter(client, opts.FanOut),
		NewYahooAdapter(client, opts.FanOut),
		NewYahooIndexAdapter(client, opts.FanOut),
		NewGoldRatesAdapter(client),
		NewMFAPIAdapter(client, opts.FanOut),
	}
	// Keyed feeds are only offered when a key is configured.
	if opts.IBJAAPIKey != "" {
		all = append(all, NewIBJAAdapter(client, opts.IBJAAPIKey))
	}
	if opts.GoldAPIKey != "" {
		all = append(all, NewGoldAPIAdapter(client, opts.GoldAPIKey))
	}

	byName := make(map[string]Adapter, len(all))
	for _, a := range all {
		if u, ok := opts.BaseURLs[a.Name()]; ok && u != "" {
			setBaseURL(a, u)
		}
		byName[a.Name()] = a
	}
	return byName
}

func setBaseURL(a Adapter, u string) {
	switch f := a.(type) {
	case *NSEAdapter:
		f.BaseURL = u
	case *GrowwAdapter:
		f.BaseURL = u
	case *YahooAdapter:
		f.BaseURL = u
	case *IBJAAdapter:
		f.BaseURL = u
	case *GoldRatesAdapter:
		f.BaseURL = u
	case *GoldAPIAdapter:
		f.BaseURL = u
	case *MFAPIAdapter:
		f.BaseURL = u
	}
}

// BuildWaterfalls resolves configured adapter names into ordered adapter lists.
// Names of keyed adapters without a key are skipped with a warning; any other
// unknown name is a configuration error.
func BuildWaterfalls(opts Options, log zerolog.Logger) (map[model.Dataset][]Adapter, error) {
	registry := Registry(opts)
	names := opts.Waterfalls
	if len(names) == 0 {
		names = DefaultWaterfalls
	}

	out := make(map[model.Dataset][]Adapter, len(model.Datasets))
	for _, ds := range model.Datasets {
		order, ok := names[ds]
		if !ok {
			order = DefaultWaterfalls[ds]
		}
		for _, name := range order {
			a, ok := registry[name]
			if !ok {
				if name == "ibja" || name == "goldapi" {
					log.Warn().Str("dataset", string(ds)).Str("adapter", name).Msg("adapter has no api key, skipped")
					continue
				}
				return nil, fmt.Errorf("dataset %s: unknown adapter %q", ds, name)
			}
			out[ds] = append(out[ds], a)
		}
		if len(out[ds]) == 0 {
			return nil, fmt.Errorf("dataset %s: no usable adapters", ds)
		}
	}
	return out, nil
}

// New builds a Collector from options.
func New(opts Options, log zerolog.Logger) (*Collector, error) {
	waterfalls, err := BuildWaterfalls(opts, log)
	if err != nil {
		return nil, err
	}
	c := NewCollector(waterfalls, log)
	if opts.RetryPolicy.Attempts > 0 {
		c.Policy = opts.RetryPolicy
	}
	return c, nil
}
