// Package neis fetches school meal menus from the NEIS open API
// (mealServiceDietInfo).
package neis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

const DefaultURL = "https://open.neis.go.kr/hub/mealServiceDietInfo"

// MealKind follows MMEAL_SC_CODE.
type MealKind int

const (
	Breakfast MealKind = 1
	Lunch     MealKind = 2
	Dinner    MealKind = 3
)

func (k MealKind) String() string {
	switch k {
	case Breakfast:
		return "조식"
	case Lunch:
		return "중식"
	case Dinner:
		return "석식"
	}
	return "MealKind(" + strconv.Itoa(int(k)) + ")"
}

// Meals holds the dishes of one day. A nil entry means no menu was published.
type Meals struct {
	Day    time.Time
	Dishes [3][]string
}

func (m Meals) Of(k MealKind) []string {
	if k < Breakfast || k > Dinner {
		return nil
	}
	return m.Dishes[k-1]
}

func (m Meals) Empty() bool {
	return m.Dishes[0] == nil && m.Dishes[1] == nil && m.Dishes[2] == nil
}

type Config struct {
	BaseURL    string
	Key        string
	OfficeCode string // ATPT_OFCDC_SC_CODE
	SchoolCode string // SD_SCHUL_CODE
	Timeout    time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.OfficeCode) == "" || strings.TrimSpace(cfg.SchoolCode) == "" {
		return nil, errors.New("neis: office and school codes are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}, nil
}

// Meals returns the menu of the civil day of t. A day without data is not
// an error; it yields empty Meals.
func (c *Client) Meals(ctx context.Context, t time.Time) (Meals, error) {
	out := Meals{Day: t}
	q := url.Values{}
	q.Set("Type", "json")
	q.Set("ATPT_OFCDC_SC_CODE", c.cfg.OfficeCode)
	q.Set("SD_SCHUL_CODE", c.cfg.SchoolCode)
	q.Set("MLSV_YMD", t.Format("20060102"))
	if c.cfg.Key != "" {
		q.Set("KEY", c.cfg.Key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return out, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, err
	}
	if resp.StatusCode/100 != 2 {
		return out, fmt.Errorf("neis: http %d", resp.StatusCode)
	}

	rows, err := parseRows(body)
	if err != nil {
		return out, err
	}
	for _, r := range rows {
		kind, _ := strconv.Atoi(r.Get("MMEAL_SC_CODE").MustString())
		if kind < int(Breakfast) || kind > int(Dinner) {
			continue
		}
		out.Dishes[kind-1] = SplitDishes(r.Get("DDISH_NM").MustString())
	}
	c.log.Debug("meals fetched", logx.String("day", t.Format("2006-01-02")), logx.Int("rows", len(rows)))
	return out, nil
}

// parseRows walks the NEIS envelope:
//
//	{"mealServiceDietInfo":[{"head":[{"list_total_count":3},{"RESULT":{"CODE":"INFO-000"}}]},{"row":[...]}]}
//
// A bare {"RESULT":{"CODE":"INFO-200"}} means no data.
func parseRows(body []byte) ([]*simplejson.Json, error) {
	js, err := simplejson.NewJson(body)
	if err != nil {
		return nil, fmt.Errorf("neis: %w", err)
	}
	if res, ok := js.CheckGet("RESULT"); ok {
		code := res.Get("CODE").MustString()
		if code == "INFO-200" {
			return nil, nil
		}
		return nil, fmt.Errorf("neis: %s %s", code, res.Get("MESSAGE").MustString())
	}

	info, ok := js.CheckGet("mealServiceDietInfo")
	if !ok {
		return nil, errors.New("neis: unexpected response")
	}
	parts := info.MustArray()
	var rows []*simplejson.Json
	for i := range parts {
		part := info.GetIndex(i)
		if head, ok := part.CheckGet("head"); ok {
			for j := range head.MustArray() {
				if res, ok := head.GetIndex(j).CheckGet("RESULT"); ok {
					if code := res.Get("CODE").MustString(); code != "INFO-000" {
						return nil, fmt.Errorf("neis: %s %s", code, res.Get("MESSAGE").MustString())
					}
				}
			}
		}
		if r, ok := part.CheckGet("row"); ok {
			for j := range r.MustArray() {
				rows = append(rows, r.GetIndex(j))
			}
		}
	}
	return rows, nil
}

var allergyMarks = regexp.MustCompile(`\s*\(\d+(?:\.\d+)*\.?\)\s*$`)

// SplitDishes turns "쌀밥<br/>된장국 (5.6.13.)<br/>" into ["쌀밥", "된장국"].
func SplitDishes(s string) []string {
	var out []string
	for _, d := range strings.Split(s, "<br/>") {
		d = strings.TrimSpace(allergyMarks.ReplaceAllString(strings.TrimSpace(d), ""))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
