package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Metric names used by the campaign snapshots.
const (
	MetricSpend            = "Spend"
	MetricClicks           = "Clicks"
	MetricOrders           = "Orders"
	MetricSales            = "Sales"
	MetricConversion       = "Conversion"
	MetricCommissionRate   = "Commission Rate"
	MetricProfit           = "Profit"
	MetricPromotionalCosts = "Promotional Costs"
)

// CampaignStatus is the lifecycle state of an affiliate campaign.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "Active"
	CampaignPending   CampaignStatus = "Pending"
	CampaignCompleted CampaignStatus = "Completed"
)

// Color returns the status swatch shown next to the campaign name.
func (s CampaignStatus) Color() string {
	switch s {
	case CampaignActive:
		return "#00b746"
	case CampaignPending:
		return "#f3af00"
	case CampaignCompleted:
		return "#8B0000"
	default:
		return "#999999"
	}
}

// Campaign is a selectable marketplace campaign.
type Campaign struct {
	Name   string         `json:"name" yaml:"name"`
	Status CampaignStatus `json:"status" yaml:"status"`
	Start  time.Time      `json:"start" yaml:"start"`
	End    time.Time      `json:"end" yaml:"end"`
}

// Period renders the campaign window as DD.MM.YY - DD.MM.YY.
func (c Campaign) Period() string {
	return c.Start.Format("02.01.06") + " - " + c.End.Format("02.01.06")
}

// DetailRow is a product/blogger performance row.
type DetailRow struct {
	Key        string  `json:"key" yaml:"key"`
	Image      string  `json:"image,omitempty" yaml:"image,omitempty"`
	Product    string  `json:"product" yaml:"product"`
	ASIN       string  `json:"asin" yaml:"asin"`
	Blogger    string  `json:"blogger" yaml:"blogger"`
	Orders     int     `json:"orders" yaml:"orders"`
	Clicks     int     `json:"clicks" yaml:"clicks"`
	Conversion float64 `json:"conversion" yaml:"conversion"`
	Rate       float64 `json:"rate" yaml:"rate"`
	Margin     float64 `json:"margin" yaml:"margin"`
	Spend      float64 `json:"spend" yaml:"spend"`
	Sales      float64 `json:"sales" yaml:"sales"`
	Profit     float64 `json:"profit" yaml:"profit"`
	PromoCosts float64 `json:"promo_costs" yaml:"promo_costs"`
}

// ContentRow is a published piece of blogger content.
type ContentRow struct {
	Key      string    `json:"key" yaml:"key"`
	ASIN     string    `json:"asin" yaml:"asin"`
	Blogger  string    `json:"blogger" yaml:"blogger"`
	Date     time.Time `json:"date" yaml:"date"`
	Campaign string    `json:"campaign" yaml:"campaign"`
	Link     string    `json:"link" yaml:"link"`
}

// MetricValue holds either a number or a preformatted text value such as "15%".
type MetricValue struct {
	Number *float64
	Text   string
}

// NumberValue builds a numeric metric value.
func NumberValue(v float64) MetricValue {
	return MetricValue{Number: &v}
}

// TextValue builds a text metric value.
func TextValue(s string) MetricValue {
	return MetricValue{Text: s}
}

// IsNumber reports whether the value is numeric.
func (v MetricValue) IsNumber() bool {
	return v.Number != nil
}

// Float returns the numeric value when present.
func (v MetricValue) Float() (float64, bool) {
	if v.Number == nil {
		return 0, false
	}
	return *v.Number, true
}

// Percent parses values like "15%" (or plain numbers) into a float.
func (v MetricValue) Percent() (float64, bool) {
	if v.Number != nil {
		return *v.Number, true
	}
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Text), "%"))
	if trimmed == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v MetricValue) String() string {
	if v.Number != nil {
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	}
	return v.Text
}

// MarshalJSON encodes the value as a JSON number or string.
func (v MetricValue) MarshalJSON() ([]byte, error) {
	if v.Number != nil {
		return json.Marshal(*v.Number)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts a JSON number or string.
func (v *MetricValue) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = NumberValue(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("dashboard: metric value must be a number or string: %w", err)
	}
	*v = TextValue(s)
	return nil
}

// MarshalYAML encodes the value as a YAML scalar.
func (v MetricValue) MarshalYAML() (any, error) {
	if v.Number != nil {
		return *v.Number, nil
	}
	return v.Text, nil
}

// UnmarshalYAML decodes numeric scalars as numbers and anything else as text.
func (v *MetricValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("dashboard: metric value must be a scalar (line %d)", node.Line)
	}
	if tag := node.ShortTag(); tag == "!!int" || tag == "!!float" {
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("dashboard: parse metric value %q: %w", node.Value, err)
		}
		*v = NumberValue(f)
		return nil
	}
	*v = TextValue(node.Value)
	return nil
}

// Metric is a named snapshot value.
type Metric struct {
	Name  string      `json:"name" yaml:"name"`
	Value MetricValue `json:"value" yaml:"value"`
}

// MetricSnapshot is an ordered list of metrics for one period.
type MetricSnapshot []Metric

// Get returns the value stored under name.
func (s MetricSnapshot) Get(name string) (MetricValue, bool) {
	for _, m := range s {
		if m.Name == name {
			return m.Value, true
		}
	}
	return MetricValue{}, false
}

// Number returns the numeric value stored under name.
func (s MetricSnapshot) Number(name string) (float64, bool) {
	v, ok := s.Get(name)
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Names returns the metric names in snapshot order.
func (s MetricSnapshot) Names() []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.Name
	}
	return out
}

// Dataset is the read-only record set every widget derives from.
type Dataset struct {
	Campaigns   []Campaign     `json:"campaigns" yaml:"campaigns"`
	Bloggers    []string       `json:"bloggers" yaml:"bloggers"`
	Links       []string       `json:"links" yaml:"links"`
	DetailRows  []DetailRow    `json:"detail_rows" yaml:"detail_rows"`
	ContentRows []ContentRow   `json:"content_rows" yaml:"content_rows"`
	Current     MetricSnapshot `json:"current" yaml:"current"`
	Previous    MetricSnapshot `json:"previous" yaml:"previous"`
}

// ASINs returns the unique detail-row ASINs in first-seen order.
func (d Dataset) ASINs() []string {
	seen := make(map[string]struct{}, len(d.DetailRows))
	out := make([]string, 0, len(d.DetailRows))
	for _, row := range d.DetailRows {
		if row.ASIN == "" {
			continue
		}
		if _, ok := seen[row.ASIN]; ok {
			continue
		}
		seen[row.ASIN] = struct{}{}
		out = append(out, row.ASIN)
	}
	return out
}

// Campaign looks up a campaign by name.
func (d Dataset) Campaign(name string) (Campaign, bool) {
	for _, c := range d.Campaigns {
		if c.Name == name {
			return c, true
		}
	}
	return Campaign{}, false
}

// DefaultDataset returns the demo campaign data anchored on now.
func DefaultDataset(now time.Time) Dataset {
	day := startOfDay(now)
	return Dataset{
		Campaigns: []Campaign{
			{Name: "Amazon", Status: CampaignActive, Start: day.AddDate(0, 0, -20), End: day.AddDate(0, 0, 10)},
			{Name: "eBay", Status: CampaignPending, Start: day.AddDate(0, 0, 5), End: day.AddDate(0, 0, 35)},
			{Name: "Shopify", Status: CampaignCompleted, Start: day.AddDate(0, 0, -60), End: day.AddDate(0, 0, -30)},
		},
		Bloggers: []string{"Иван Иванов", "Мария Смирнова"},
		Links: []string{
			"https://youtube.com/watch?v=abc123",
			"https://instagram.com/p/xyz789",
			"https://tiktok.com/@user/video/456",
			"https://blog.example.com/post-1",
			"https://youtube.com/shorts/def456",
		},
		DetailRows: []DetailRow{
			{
				Key: "1", Image: "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcQtJr-cqOx04hXoXD06NMfsGlB-UFxHD3rAaA&s",
				Product: "B0AAA11111 (SKU: HVM-70001) Stainless Steel Toilet Brush and Holder – Matte Black",
				ASIN:    "B0AAA11111", Blogger: "Иван Иванов", Rate: 7, Margin: 15,
			},
			{
				Key: "2", Image: "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcTpbMMyNkEN6q0bscf53nWBb3F3pXAJr11NfQ&s",
				Product: "B0BBB22222 (SKU: HVM-70002) 720° Rotating Faucet Aerator – Splash-proof Smart Filter",
				ASIN:    "B0BBB22222", Blogger: "Мария Смирнова", Orders: 1, Clicks: 15, Conversion: 6.7, Rate: 7, Margin: 53,
				Sales: 12.64, Profit: 6.72, PromoCosts: 2.50,
			},
			{
				Key: "3", Image: "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcQKprCjvW5CbqPRI9Qt8DIHJVztC4FlWkoSfg&s",
				Product: "B0CCC33333 (SKU: HVM-70003) Gold Toilet Brush and Holder – Brushed Stainless Steel",
				ASIN:    "B0CCC33333", Blogger: "Иван Иванов", Orders: 2, Clicks: 30, Conversion: 6.7, Rate: 7, Margin: 53,
				Sales: 25.28, Profit: 13.44, PromoCosts: 5.00,
			},
			{
				Key: "4", Image: "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcSJLGQ3xRxuRsEnru3EiWdylLg7GVaEESV8Yg&s",
				Product: "B0DDD44444 (SKU: HVM-70004) Gold Toilet Brush and Holder – Deluxe Edition",
				ASIN:    "B0DDD44444", Blogger: "Мария Смирнова", Orders: 1, Clicks: 15, Conversion: 6.7, Rate: 7, Margin: 53,
				Sales: 12.64, Profit: 6.72, PromoCosts: 2.50,
			},
		},
		ContentRows: []ContentRow{
			{Key: "c1", ASIN: "B00123456", Blogger: "Иван Иванов", Date: day.AddDate(0, 0, -1), Campaign: "Amazon", Link: "https://youtube.com/watch?v=abc123"},
			{Key: "c2", ASIN: "C00987654", Blogger: "Мария Смирнова", Date: day, Campaign: "eBay", Link: "https://instagram.com/p/xyz789"},
		},
		Previous: MetricSnapshot{
			{Name: MetricSpend, Value: NumberValue(1774.18)},
			{Name: MetricClicks, Value: NumberValue(3249)},
			{Name: MetricOrders, Value: NumberValue(120)},
			{Name: MetricSales, Value: NumberValue(8065.07)},
			{Name: MetricConversion, Value: TextValue("12%")},
			{Name: MetricCommissionRate, Value: TextValue("5%")},
			{Name: MetricProfit, Value: NumberValue(3200)},
			{Name: MetricPromotionalCosts, Value: NumberValue(650)},
		},
		Current: MetricSnapshot{
			{Name: MetricSpend, Value: NumberValue(3372.42)},
			{Name: MetricClicks, Value: NumberValue(6200)},
			{Name: MetricOrders, Value: NumberValue(100)},
			{Name: MetricSales, Value: NumberValue(15450.24)},
			{Name: MetricConversion, Value: TextValue("15%")},
			{Name: MetricCommissionRate, Value: TextValue("7%")},
			{Name: MetricProfit, Value: NumberValue(5400)},
			{Name: MetricPromotionalCosts, Value: NumberValue(980)},
		},
	}
}

var (
	productASINPattern = regexp.MustCompile(`^(B[A-Z0-9]{9})`)
	productSKUPattern  = regexp.MustCompile(`\(SKU:\s*([^)]+)\)`)
	productNamePattern = regexp.MustCompile(`\)\s*(.+)$`)
)

// ProductInfo is the parsed form of a product label.
type ProductInfo struct {
	ASIN string `json:"asin"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// ParseProduct splits "B0AAA11111 (SKU: X) Name" style labels.
// Missing parts are left empty; Name falls back to the raw label.
func ParseProduct(product string) ProductInfo {
	var info ProductInfo
	if m := productASINPattern.FindStringSubmatch(product); len(m) > 1 {
		info.ASIN = m[1]
	}
	if m := productSKUPattern.FindStringSubmatch(product); len(m) > 1 {
		info.SKU = strings.TrimSpace(m[1])
	}
	if m := productNamePattern.FindStringSubmatch(product); len(m) > 1 {
		info.Name = strings.TrimSpace(m[1])
	} else {
		info.Name = product
	}
	return info
}

// DatasetSource loads the dataset widgets derive from.
type DatasetSource interface {
	Load(ctx context.Context) (Dataset, error)
}

// StaticDatasetSource serves a fixed dataset.
type StaticDatasetSource struct {
	Data Dataset
}

// Load implements DatasetSource.
func (s StaticDatasetSource) Load(context.Context) (Dataset, error) {
	return s.Data, nil
}

// FileDatasetSource loads a YAML fixture from disk on every call.
type FileDatasetSource struct {
	Path string
}

// Load implements DatasetSource.
func (s FileDatasetSource) Load(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	return LoadDatasetFile(s.Path)
}

// LoadDatasetFile reads a YAML dataset fixture.
func LoadDatasetFile(path string) (Dataset, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return Dataset{}, fmt.Errorf("dashboard: open dataset %s: %w", path, err)
	}
	defer f.Close()
	ds, err := DecodeDataset(f)
	if err != nil {
		return Dataset{}, fmt.Errorf("dashboard: decode dataset %s: %w", path, err)
	}
	return ds, nil
}

// DecodeDataset parses a YAML dataset fixture.
func DecodeDataset(r io.Reader) (Dataset, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var ds Dataset
	if err := decoder.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, errors.New("dashboard: dataset is empty")
		}
		return Dataset{}, fmt.Errorf("dashboard: parse dataset: %w", err)
	}
	return ds, nil
}

// EncodeDataset writes the dataset as YAML.
func EncodeDataset(w io.Writer, ds Dataset) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(ds); err != nil {
		return fmt.Errorf("dashboard: encode dataset: %w", err)
	}
	return encoder.Close()
}
