package demo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
)

const (
	TableCustomers  = "customers"
	TableProducts   = "products"
	TableOrders     = "orders"
	TableOrderItems = "order_items"
)

// Tables lists the demo tables in foreign-key order.
var Tables = []string{TableCustomers, TableProducts, TableOrders, TableOrderItems}

type Customer struct {
	ID        int64     `parquet:"id"`
	FirstName string    `parquet:"first_name"`
	LastName  string    `parquet:"last_name"`
	Email     string    `parquet:"email"`
	City      string    `parquet:"city"`
	Country   string    `parquet:"country"`
	Segment   string    `parquet:"segment"`
	CreatedAt time.Time `parquet:"created_at,timestamp(millisecond)"`
}

type Product struct {
	ID        int64     `parquet:"id"`
	SKU       string    `parquet:"sku"`
	Name      string    `parquet:"name"`
	Category  string    `parquet:"category"`
	UnitPrice float64   `parquet:"unit_price"`
	CreatedAt time.Time `parquet:"created_at,timestamp(millisecond)"`
}

type Order struct {
	ID          int64     `parquet:"id"`
	CustomerID  int64     `parquet:"customer_id"`
	Status      string    `parquet:"status"`
	Channel     string    `parquet:"channel"`
	OrderedAt   time.Time `parquet:"ordered_at,timestamp(millisecond)"`
	TotalAmount float64   `parquet:"total_amount"`
}

type OrderItem struct {
	ID        int64   `parquet:"id"`
	OrderID   int64   `parquet:"order_id"`
	ProductID int64   `parquet:"product_id"`
	Quantity  int32   `parquet:"quantity"`
	UnitPrice float64 `parquet:"unit_price"`
}

// Dataset is one generated copy of the demo sales warehouse.
type Dataset struct {
	Customers  []Customer
	Products   []Product
	Orders     []Order
	OrderItems []OrderItem
}

func (d Dataset) RowCounts() map[string]int {
	return map[string]int{
		TableCustomers:  len(d.Customers),
		TableProducts:   len(d.Products),
		TableOrders:     len(d.Orders),
		TableOrderItems: len(d.OrderItems),
	}
}

type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Generate builds a dataset whose orders fall within the last cfg.Days days.
// The same seed and clock always produce the same dataset.
func (g *Generator) Generate(cfg Config) (Dataset, error) {
	if cfg.Customers <= 0 || cfg.Products <= 0 || cfg.Orders <= 0 {
		return Dataset{}, fmt.Errorf("customers, products and orders must be > 0")
	}
	if cfg.Days <= 0 {
		return Dataset{}, fmt.Errorf("days must be > 0")
	}

	end := g.now().Truncate(time.Minute)
	start := end.AddDate(0, 0, -cfg.Days)

	var data Dataset
	for i := 1; i <= cfg.Customers; i++ {
		data.Customers = append(data.Customers, g.customer(int64(i), start))
	}
	for i := 1; i <= cfg.Products; i++ {
		data.Products = append(data.Products, g.product(int64(i), start))
	}

	window := end.Sub(start)
	orderTimes := make([]time.Time, cfg.Orders)
	for i := range orderTimes {
		orderTimes[i] = start.Add(time.Duration(g.rnd.Int63n(int64(window)))).Truncate(time.Second)
	}
	sort.Slice(orderTimes, func(i, j int) bool { return orderTimes[i].Before(orderTimes[j]) })

	var itemID int64
	for i, orderedAt := range orderTimes {
		order := Order{
			ID:         int64(i + 1),
			CustomerID: int64(g.rnd.Intn(cfg.Customers) + 1),
			Status:     g.pickStatus(),
			Channel:    pickOne(g.rnd, []string{"web", "mobile", "store", "partner"}),
			OrderedAt:  orderedAt,
		}

		lines := 1 + g.rnd.Intn(4)
		for j := 0; j < lines; j++ {
			product := data.Products[g.rnd.Intn(len(data.Products))]
			itemID++
			item := OrderItem{
				ID:        itemID,
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  int32(1 + g.rnd.Intn(5)),
				UnitPrice: product.UnitPrice,
			}
			order.TotalAmount += float64(item.Quantity) * item.UnitPrice
			data.OrderItems = append(data.OrderItems, item)
		}
		order.TotalAmount = round2(order.TotalAmount)
		data.Orders = append(data.Orders, order)
	}
	return data, nil
}

var (
	firstNames = []string{"Ada", "Ben", "Chloe", "Diego", "Emma", "Farid", "Grace", "Hiro", "Ines", "Jonas", "Kira", "Liam", "Maya", "Noah", "Olga", "Priya"}
	lastNames  = []string{"Anderson", "Becker", "Castillo", "Dubois", "Evans", "Fischer", "Garcia", "Hansen", "Ito", "Jensen", "Khan", "Lopez", "Muller", "Nakamura"}
	cities     = []struct{ city, country string }{
		{"Berlin", "DE"}, {"Munich", "DE"}, {"London", "GB"}, {"Manchester", "GB"},
		{"New York", "US"}, {"Austin", "US"}, {"Seattle", "US"}, {"Tokyo", "JP"},
		{"Sao Paulo", "BR"}, {"Bangalore", "IN"},
	}
	categories = map[string][]string{
		"electronics": {"Headphones", "Keyboard", "Monitor", "Webcam", "Charger"},
		"home":        {"Lamp", "Kettle", "Blanket", "Mug Set", "Plant Pot"},
		"outdoor":     {"Backpack", "Tent", "Water Bottle", "Headlamp"},
		"books":       {"Cookbook", "Novel", "Travel Guide", "Notebook"},
	}
	categoryNames = []string{"books", "electronics", "home", "outdoor"}
)

func (g *Generator) customer(id int64, start time.Time) Customer {
	first := pickOne(g.rnd, firstNames)
	last := pickOne(g.rnd, lastNames)
	place := cities[g.rnd.Intn(len(cities))]
	return Customer{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Email:     fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), id),
		City:      place.city,
		Country:   place.country,
		Segment:   g.pickSegment(),
		CreatedAt: start.AddDate(0, 0, -g.rnd.Intn(365)).Truncate(time.Second),
	}
}

func (g *Generator) product(id int64, start time.Time) Product {
	category := pickOne(g.rnd, categoryNames)
	base := pickOne(g.rnd, categories[category])
	return Product{
		ID:        id,
		SKU:       fmt.Sprintf("%s-%04d", strings.ToUpper(category[:3]), id),
		Name:      fmt.Sprintf("%s %s", base, pickOne(g.rnd, []string{"Basic", "Plus", "Pro", "Mini"})),
		Category:  category,
		UnitPrice: g.pickPrice(category),
		CreatedAt: start.AddDate(0, 0, -g.rnd.Intn(730)).Truncate(time.Second),
	}
}

func (g *Generator) pickSegment() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 70:
		return "consumer"
	case p < 92:
		return "business"
	default:
		return "enterprise"
	}
}

func (g *Generator) pickStatus() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 8:
		return "pending"
	case p < 55:
		return "paid"
	case p < 92:
		return "shipped"
	case p < 97:
		return "cancelled"
	default:
		return "refunded"
	}
}

func (g *Generator) pickPrice(category string) float64 {
	switch category {
	case "electronics":
		return round2(25 + g.rnd.Float64()*375)
	case "outdoor":
		return round2(10 + g.rnd.Float64()*190)
	case "home":
		return round2(8 + g.rnd.Float64()*92)
	default:
		return round2(6 + g.rnd.Float64()*34)
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
