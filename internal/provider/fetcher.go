package provider

import "time"

// Quote is one live price observation with a best-effort company name.
type Quote struct {
	Price       float64
	CompanyName string
	FetchedAt   time.Time
}

// Fetcher supplies live quotes for an instrument identified by ISIN.
// A fetch failure means "skip this instrument this cycle", not a fatal
// condition.
type Fetcher interface {
	FetchQuote(isin string) (*Quote, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price       float64
	CompanyName string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchQuote(_ string) (*Quote, error) {
	return &Quote{Price: m.Price, CompanyName: m.CompanyName, FetchedAt: time.Now()}, nil
}
