package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
)

// Emits deliberately messy raw orders: absent sub-structures, mixed-case
// sentinels, string-typed prices, and the occasional junk price so the
// ingest run exercises rejection counting.

type rawCampaign struct {
	Discount   any    `json:"discount,omitempty"`
	Channel    string `json:"channel,omitempty"`
	CouponCode string `json:"coupon_code,omitempty"`
}

type rawItem struct {
	ProductID         string       `json:"product_id"`
	Price             any          `json:"price"`
	ShippingLimitDate string       `json:"shipping_limit_date,omitempty"`
	SellerID          string       `json:"seller_id"`
	Campaign          *rawCampaign `json:"campaign_details,omitempty"`
}

type rawCustomer struct {
	CustomerID string `json:"customer_id"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
}

type rawOrder struct {
	OrderID        string       `json:"order_id"`
	Customer       *rawCustomer `json:"customer,omitempty"`
	OrderStatus    string       `json:"order_status,omitempty"`
	OrderTimestamp string       `json:"order_timestamp,omitempty"`
	Items          []rawItem    `json:"order_items"`
	Campaign       *rawCampaign `json:"campaign_details,omitempty"`
}

func main() {
	var count int
	var outputFile string
	var seed int64
	flag.IntVar(&count, "count", 200, "number of orders to generate")
	flag.StringVar(&outputFile, "output", "raw.orders.jsonl", "output file")
	flag.Int64Var(&seed, "seed", 0, "rng seed (0 = time-based)")
	flag.Parse()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if err := generateOrders(count, outputFile, rand.New(rand.NewSource(seed))); err != nil {
		log.Fatalf("generation failed: %v", err)
	}
}

func generateOrders(count int, outputFile string, rng *rand.Rand) error {
	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	cities := []string{"Sao Paulo", " rio de janeiro ", "Curitiba", ""}
	states := []string{"SP", "rj", "PR"}
	statuses := []string{"delivered", "shipped", "cancelled"}
	channels := []string{"email", "social", "Search", "NO_CAMPAIGN"}
	coupons := []string{"SUMMER10", "welcome5", "NO_CAMPAIGN", "flash20"}
	sellers := []string{"s1", "s2", "s3", "s4"}
	products := []string{"p1", "p2", "p3", "p4", "p5", "p6"}

	baseTime := time.Now().UTC().Add(-90 * 24 * time.Hour)

	enc := json.NewEncoder(file)
	for i := 0; i < count; i++ {
		o := rawOrder{
			OrderID:     fmt.Sprintf("o%d", i+1),
			OrderStatus: statuses[rng.Intn(len(statuses))],
		}
		// Most orders carry a customer; a few miss identity to exercise
		// rejection.
		if rng.Intn(25) != 0 {
			o.Customer = &rawCustomer{
				CustomerID: fmt.Sprintf("c%d", 1+rng.Intn(count/3+1)),
				City:       cities[rng.Intn(len(cities))],
				State:      states[rng.Intn(len(states))],
			}
		}
		if rng.Intn(10) != 0 {
			ts := baseTime.Add(time.Duration(rng.Intn(90*24)) * time.Hour)
			o.OrderTimestamp = ts.Format(time.RFC3339)
		}
		if rng.Intn(3) == 0 {
			o.Campaign = &rawCampaign{
				Discount:   fmt.Sprintf("%d.5", rng.Intn(20)), // string-typed decimal
				Channel:    channels[rng.Intn(len(channels))],
				CouponCode: coupons[rng.Intn(len(coupons))],
			}
		}
		nItems := rng.Intn(4) // zero-item orders exercise EmptyLineItems
		for j := 0; j < nItems; j++ {
			item := rawItem{
				ProductID: products[rng.Intn(len(products))],
				SellerID:  sellers[rng.Intn(len(sellers))],
				Price:     float64(10+rng.Intn(490)) + 0.99,
			}
			if rng.Intn(50) == 0 {
				item.Price = "not-a-price" // junk to exercise coercion rejection
			}
			if rng.Intn(2) == 0 {
				item.ShippingLimitDate = baseTime.Add(time.Duration(rng.Intn(120*24)) * time.Hour).Format(time.RFC3339)
			}
			if rng.Intn(4) == 0 {
				item.Campaign = &rawCampaign{
					Discount:   rng.Intn(15),
					Channel:    channels[rng.Intn(len(channels))],
					CouponCode: coupons[rng.Intn(len(coupons))],
				}
			}
			o.Items = append(o.Items, item)
		}
		if err := enc.Encode(&o); err != nil {
			return fmt.Errorf("encode order %d: %w", i+1, err)
		}
	}

	log.Printf("generated %d raw orders to %s", count, outputFile)
	return nil
}
