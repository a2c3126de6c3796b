package bookkeeper

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// RateSource resolves the exchange rate between two currencies on a day:
// one unit of from is worth Rate units of to.
type RateSource interface {
	Rate(from, to string, on Date) (decimal.Decimal, error)
}

// LedgerRates resolves rates from the price directives already recorded in a
// ledger. The most recent price on or before the requested day wins; when
// only the inverse pair is recorded, its reciprocal is used.
type LedgerRates struct {
	Ledger *Ledger
}

func (r LedgerRates) Rate(from, to string, on Date) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := r.lookup(from, to, on); ok {
		return rate, nil
	}
	if rate, ok := r.lookup(to, from, on); ok && !rate.IsZero() {
		return decimal.NewFromInt(1).Div(rate), nil
	}
	return decimal.Decimal{}, fmt.Errorf("no recorded price for %s in %s on or before %s", from, to, on)
}

func (r LedgerRates) lookup(commodity, currency string, on Date) (decimal.Decimal, bool) {
	var best decimal.Decimal
	var found bool
	for _, d := range r.Ledger.Directives() {
		p, ok := d.(Price)
		if !ok || p.Commodity != commodity || p.Amount.Currency() != currency || p.Day.After(on) {
			continue
		}
		// Directives are chronological, so the last hit is the most recent.
		best, found = p.Amount.Decimal(), true
	}
	return best, found
}

// OnlineRates resolves the current rate of a few well-known pairs from the
// ls-tc.de intraday feed. It only knows today's value: the feed has no
// historical endpoint, so requests for other days fail.
type OnlineRates struct {
	client      *http.Client
	instruments map[string]string // "EUR/USD" to instrument id
}

// NewOnlineRates returns an OnlineRates with a daily-expiring response cache.
func NewOnlineRates() *OnlineRates {
	return &OnlineRates{
		client: daily(),
		instruments: map[string]string{
			"EUR/USD": "349938",
		},
	}
}

func (r *OnlineRates) Rate(from, to string, on Date) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if on != Today() {
		return decimal.Decimal{}, fmt.Errorf("online rate for %s/%s is only available for today, not %s", from, to, on)
	}
	if id, ok := r.instruments[from+"/"+to]; ok {
		return r.fetch(from+"/"+to, id)
	}
	if id, ok := r.instruments[to+"/"+from]; ok {
		rate, err := r.fetch(to+"/"+from, id)
		if err != nil {
			return decimal.Decimal{}, err
		}
		if rate.IsZero() {
			return decimal.Decimal{}, fmt.Errorf("zero rate for %s/%s", to, from)
		}
		return decimal.NewFromInt(1).Div(rate), nil
	}
	return decimal.Decimal{}, fmt.Errorf("no instrument known for %s/%s", from, to)
}

func (r *OnlineRates) fetch(pair, instrument string) (decimal.Decimal, error) {
	addr := "https://www.ls-tc.de/_rpc/json/instrument/chart/dataForInstrument?instrumentId=" + instrument + "&series=intraday&type=mini"
	var jobj any
	if err := jwget(r.client, addr, &jobj); err != nil {
		return decimal.Decimal{}, fmt.Errorf("error in wget %q: %w", pair, err)
	}
	path := "$.series.intraday.data[-1:][1]"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("error parsing %q: %q %w", pair, path, err)
	}
	// because jsonpath is never clear about whether it returns a list of 1 answer, or a single answer:
	// by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("error parsing %q: %q %s %v", pair, path, "not a float", jval)
	}
	return decimal.NewFromFloat(val), nil
}

// rateCache caches HTTP responses on disk. The key includes today's date,
// so an entry expires at midnight and the feed is hit once per pair per day.
type rateCache struct {
	base http.RoundTripper
}

func (c *rateCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := fmt.Sprintf("%s %s %s", Today(), req.Method, req.URL)
	file := filepath.Join(os.TempDir(), fmt.Sprintf("%x", sha1.Sum([]byte(key))))

	if content, err := os.ReadFile(file); err == nil {
		return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if content, err := httputil.DumpResponse(resp, true); err == nil {
		// A failed cache write only means the next request refetches.
		os.WriteFile(file, content, 0644)
	}
	return resp, nil
}

// daily returns a client whose responses expire at the end of the day.
func daily() *http.Client {
	return &http.Client{Transport: &rateCache{http.DefaultTransport}}
}

// jwget performs an HTTP GET and unmarshals the JSON response into data.
func jwget(client *http.Client, addr string, data any) error {
	resp, err := client.Get(addr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(content, data)
}

// RateChain tries each source in order and returns the first answer.
type RateChain []RateSource

func (c RateChain) Rate(from, to string, on Date) (decimal.Decimal, error) {
	var lastErr error
	for _, source := range c {
		rate, err := source.Rate(from, to, on)
		if err == nil {
			return rate, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty rate chain")
	}
	return decimal.Decimal{}, fmt.Errorf("no source resolved %s to %s on %s: %w", from, to, on, lastErr)
}
