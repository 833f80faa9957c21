package catalog

import (
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/AtharvDutare/Scan-Crop/internal/common"
)

//go:embed data/*.yaml
var dataFS embed.FS

// AlertTimeLayout is how alert timestamps are rendered for display.
const AlertTimeLayout = "Jan 02, 15:04"

// ErrScanNotFound is returned by ScanByID when no scan has the id.
var ErrScanNotFound = errors.New("scan not found")

// ErrUnknownCropType is returned when a post's crop type is missing and
// cannot be inferred from its name.
var ErrUnknownCropType = errors.New("crop type is required")

type CropType string

const (
	CropCorn    CropType = "corn"
	CropSoybean CropType = "soybean"
	CropWheat   CropType = "wheat"
)

// InferCropType guesses the crop type from a free-text crop name.
func InferCropType(name string) (CropType, bool) {
	switch {
	case common.HasAnyFold(name, "corn", "maize"):
		return CropCorn, true
	case common.HasAnyFold(name, "soy"):
		return CropSoybean, true
	case common.HasAnyFold(name, "wheat"):
		return CropWheat, true
	default:
		return "", false
	}
}

// Scan is a completed plant health scan with the field team that handled it.
type Scan struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Status      string `yaml:"status" json:"status"`
	Confidence  int    `yaml:"confidence" json:"confidence"`
	Date        string `yaml:"date" json:"date"`
	Image       string `yaml:"image" json:"image"`
	Laborers    int    `yaml:"laborers" json:"laborers"`
	LaborCharge int    `yaml:"laborCharge" json:"laborCharge"`
}

type RecentScan struct {
	Title  string `yaml:"title" json:"title"`
	Status string `yaml:"status" json:"status"`
	Image  string `yaml:"image" json:"image"`
}

type MarketPost struct {
	ID          string   `yaml:"id" json:"id"`
	CropName    string   `yaml:"cropName" json:"cropName" validate:"required"`
	CropType    CropType `yaml:"cropType" json:"cropType" validate:"required,oneof=corn soybean wheat"`
	Description string   `yaml:"description" json:"description"`
	Quantity    int      `yaml:"quantity" json:"quantity" validate:"gt=0"`
	Price       string   `yaml:"price" json:"price" validate:"required"`
	SellerName  string   `yaml:"sellerName" json:"sellerName"`
	Location    string   `yaml:"location" json:"location"`
	DatePosted  string   `yaml:"datePosted" json:"datePosted"`
}

type Alert struct {
	Kind          string    `json:"kind"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
	FormattedTime string    `json:"formattedTime"`
}

type alertRecord struct {
	Kind        string `yaml:"kind"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Offset      string `yaml:"offset"`
}

// MarketFilter narrows MarketPosts. Zero values match everything.
type MarketFilter struct {
	Crop  CropType
	Query string
}

// NewPost is the input of AddPost.
type NewPost struct {
	CropName    string   `json:"cropName" validate:"required,max=80"`
	CropType    CropType `json:"cropType" validate:"omitempty,oneof=corn soybean wheat"`
	Description string   `json:"description" validate:"required,max=500"`
	Quantity    int      `json:"quantity" validate:"gt=0"`
	Price       string   `json:"price" validate:"required,max=40"`
	SellerName  string   `json:"sellerName" validate:"required"`
	Location    string   `json:"location" validate:"max=80"`
}

// Catalog holds the sample datasets the app ships with, plus anything
// added at runtime. Newest entries come first.
type Catalog struct {
	mu     sync.RWMutex
	scans  []Scan
	recent []RecentScan
	posts  []MarketPost
	alerts []Alert
}

// Load parses the embedded datasets. Alert times are relative to now.
func Load(now time.Time) (*Catalog, error) {
	c := &Catalog{}

	if err := decode("data/scans.yaml", &c.scans); err != nil {
		return nil, err
	}
	if err := decode("data/recent_scans.yaml", &c.recent); err != nil {
		return nil, err
	}
	if err := decode("data/market_posts.yaml", &c.posts); err != nil {
		return nil, err
	}
	for _, p := range c.posts {
		if err := common.ValidateStruct(p); err != nil {
			return nil, fmt.Errorf("market post %s: %w", p.ID, err)
		}
	}

	var records []alertRecord
	if err := decode("data/alerts.yaml", &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		offset, err := time.ParseDuration(r.Offset)
		if err != nil {
			return nil, fmt.Errorf("alert %q offset: %w", r.Title, err)
		}
		ts := now.Add(offset)
		c.alerts = append(c.alerts, Alert{
			Kind:          r.Kind,
			Title:         r.Title,
			Description:   r.Description,
			Timestamp:     ts,
			FormattedTime: ts.Format(AlertTimeLayout),
		})
	}

	return c, nil
}

func decode(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (c *Catalog) Scans() []Scan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Scan(nil), c.scans...)
}

// ScanByID returns the scan with the given id.
func (c *Catalog) ScanByID(id string) (Scan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.scans {
		if s.ID == id {
			return s, nil
		}
	}
	return Scan{}, ErrScanNotFound
}

// AddScan records a completed scan ahead of the existing ones.
func (c *Catalog) AddScan(s Scan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scans = append([]Scan{s}, c.scans...)
}

func (c *Catalog) RecentScans() []RecentScan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]RecentScan(nil), c.recent...)
}

// Alerts returns up to limit alerts; limit <= 0 returns all of them.
func (c *Catalog) Alerts(limit int) []Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > len(c.alerts) {
		limit = len(c.alerts)
	}
	return append([]Alert(nil), c.alerts[:limit]...)
}

// MarketPosts returns posts matching f. The query matches the crop name
// fuzzily and the description as a plain substring, both ignoring case.
func (c *Catalog) MarketPosts(f MarketFilter) []MarketPost {
	query := strings.TrimSpace(f.Query)

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]MarketPost, 0, len(c.posts))
	for _, p := range c.posts {
		if f.Crop != "" && p.CropType != f.Crop {
			continue
		}
		if query != "" && !fuzzy.MatchFold(query, p.CropName) && !common.HasAnyFold(p.Description, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// AddPost validates in and publishes it as the newest market post.
func (c *Catalog) AddPost(in NewPost) (MarketPost, error) {
	in.CropName = strings.TrimSpace(in.CropName)
	in.Description = strings.TrimSpace(in.Description)
	if err := common.ValidateStruct(in); err != nil {
		return MarketPost{}, err
	}

	crop := in.CropType
	if crop == "" {
		inferred, ok := InferCropType(in.CropName)
		if !ok {
			return MarketPost{}, ErrUnknownCropType
		}
		crop = inferred
	}

	post := MarketPost{
		ID:          uuid.NewString(),
		CropName:    in.CropName,
		CropType:    crop,
		Description: in.Description,
		Quantity:    in.Quantity,
		Price:       in.Price,
		SellerName:  in.SellerName,
		Location:    in.Location,
		DatePosted:  "Just now",
	}

	c.mu.Lock()
	c.posts = append([]MarketPost{post}, c.posts...)
	c.mu.Unlock()

	return post, nil
}
