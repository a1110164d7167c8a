// Package catalog provides a read-only product catalog backed by the
// WooCommerce REST API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/otrade-bot/server/internal/bot/model"
	logx "github.com/otrade-bot/server/pkg/logger"
)

type Config struct {
	URL            string `envconfig:"WOOCOMMERCE_URL"`
	ConsumerKey    string `envconfig:"WOOCOMMERCE_CONSUMER_KEY"`
	ConsumerSecret string `envconfig:"WOOCOMMERCE_CONSUMER_SECRET"`
	Timeout        int    `envconfig:"WOOCOMMERCE_TIMEOUT" default:"12"`
}

// Client talks to the WooCommerce products endpoint. An unconfigured client
// degrades to empty results so the bot keeps working without a storefront.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

func (c *Client) configured() bool {
	return c.cfg.URL != "" && c.cfg.ConsumerKey != "" && c.cfg.ConsumerSecret != ""
}

// List returns up to pageSize published products.
func (c *Client) List(ctx context.Context, pageSize int) ([]model.Product, error) {
	return c.fetch(ctx, url.Values{
		"per_page": {strconv.Itoa(pageSize)},
		"status":   {"publish"},
	})
}

// Search returns up to pageSize published products matching the query.
func (c *Client) Search(ctx context.Context, query string, pageSize int) ([]model.Product, error) {
	return c.fetch(ctx, url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(pageSize)},
		"status":   {"publish"},
	})
}

// wooProduct mirrors the subset of the WooCommerce product payload we use.
// Prices come back as strings.
type wooProduct struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Price            string `json:"price"`
	StockQuantity    *int   `json:"stock_quantity"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
}

func (c *Client) fetch(ctx context.Context, params url.Values) ([]model.Product, error) {
	if !c.configured() {
		logx.Debug().Msg("woocommerce not configured; returning empty catalog")
		return nil, nil
	}

	endpoint := strings.TrimRight(c.cfg.URL, "/") + "/wp-json/wc/v3/products?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []wooProduct
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	products := make([]model.Product, 0, len(raw))
	for _, p := range raw {
		products = append(products, toProduct(p))
	}
	return products, nil
}

func toProduct(p wooProduct) model.Product {
	price, err := strconv.ParseFloat(p.Price, 64)
	if err != nil {
		price = 0
	}
	desc := p.ShortDescription
	if desc == "" {
		desc = p.Description
	}
	return model.Product{
		ID:            p.ID,
		Name:          p.Name,
		Price:         price,
		StockQuantity: p.StockQuantity,
		Description:   StripHTML(desc),
	}
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// StripHTML flattens WooCommerce rich-text descriptions into plain text.
func StripHTML(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(htmlTagRe.ReplaceAllString(s, " ")), " "))
}
