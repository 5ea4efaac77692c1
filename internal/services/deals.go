package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

const dealsFeedBodyLimit = 1 << 20

type Deal struct {
	Store    string `json:"store"`
	Category string `json:"category"`
	Discount string `json:"discount"`
	URL      string `json:"url"`
	Emoji    string `json:"emoji"`
}

type DealsResponse struct {
	Day     string    `json:"day"`
	Deals   []Deal    `json:"deals"`
	Updated time.Time `json:"updated"`
}

type dealsFeedPayload struct {
	Deals []Deal `json:"deals"`
}

// DealsService serves the weekday catalog, or a remote JSON feed when one is
// configured. It never fails: feed errors degrade to an empty list.
type DealsService struct {
	feedURL string
	client  *http.Client
	clock   func() time.Time
}

func NewDealsService(feedURL string) *DealsService {
	return &DealsService{
		feedURL: strings.TrimSpace(feedURL),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		clock: time.Now,
	}
}

func (service *DealsService) WithClock(clock func() time.Time) *DealsService {
	if clock != nil {
		service.clock = clock
	}
	return service
}

func (service *DealsService) Today(ctx context.Context, location *time.Location) DealsResponse {
	if location == nil {
		location = time.UTC
	}
	now := service.clock()
	weekday := now.In(location).Weekday()
	response := DealsResponse{
		Day:     strings.ToLower(weekday.String()),
		Deals:   []Deal{},
		Updated: now.UTC(),
	}

	if service.feedURL == "" {
		response.Deals = DealsForWeekday(weekday)
		return response
	}

	deals, err := service.fetchFeed(ctx)
	if err != nil {
		log.WithError(err).WithField("feed", service.feedURL).Warn("deals: feed unavailable")
		return response
	}
	response.Deals = deals
	return response
}

func (service *DealsService) fetchFeed(ctx context.Context) ([]Deal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := service.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, dealsFeedBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	payload := dealsFeedPayload{}
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if payload.Deals == nil {
		return []Deal{}, nil
	}
	return payload.Deals, nil
}

func DealsForWeekday(weekday time.Weekday) []Deal {
	switch weekday {
	case time.Monday:
		return []Deal{
			{Store: "Takealot", Category: "Tech Deals", Discount: "Up to 50% off", URL: "https://www.takealot.com/deals", Emoji: "💻"},
			{Store: "OneDayOnly", Category: "Daily Specials", Discount: "70% off selected items", URL: "https://www.onedayonly.co.za", Emoji: "🔥"},
			{Store: "Evetech", Category: "Gaming Gear", Discount: "R500 off gaming PCs", URL: "https://www.evetech.co.za/specials", Emoji: "🎮"},
		}
	case time.Tuesday:
		return []Deal{
			{Store: "Netflorist", Category: "Wellness", Discount: "20% off spa vouchers", URL: "https://www.netflorist.co.za", Emoji: "🌸"},
			{Store: "Dis-Chem", Category: "Health & Beauty", Discount: "Buy 2 Get 1 Free", URL: "https://www.dischem.co.za/specials", Emoji: "💄"},
			{Store: "Wellness Warehouse", Category: "Supplements", Discount: "30% off vitamins", URL: "https://www.wellness.co.za", Emoji: "🧘"},
		}
	case time.Wednesday:
		return []Deal{
			{Store: "Superbalist", Category: "Fashion", Discount: "Extra 20% off sale", URL: "https://www.superbalist.com/sale", Emoji: "👗"},
			{Store: "Zando", Category: "Clothing", Discount: "Up to 60% off", URL: "https://www.zando.co.za/sale", Emoji: "👠"},
			{Store: "Bash", Category: "Streetwear", Discount: "R200 off R1000+", URL: "https://www.bash.com", Emoji: "👕"},
		}
	case time.Thursday:
		return []Deal{
			{Store: "Yuppiechef", Category: "Kitchen", Discount: "25% off cookware", URL: "https://www.yuppiechef.com/sale", Emoji: "🍳"},
			{Store: "Takealot Home", Category: "Home Decor", Discount: "Up to 40% off", URL: "https://www.takealot.com/home-garden", Emoji: "🏠"},
			{Store: "Superbalist Home", Category: "Furniture", Discount: "Free delivery R450+", URL: "https://www.superbalist.com/home", Emoji: "🛋️"},
		}
	case time.Friday:
		return []Deal{
			{Store: "Uber Eats", Category: "Food Delivery", Discount: "R50 off first order", URL: "https://www.ubereats.com/za", Emoji: "🍕"},
			{Store: "Mr D Food", Category: "Restaurants", Discount: "Free delivery", URL: "https://www.mrddelivery.com", Emoji: "🍔"},
			{Store: "Checkers Sixty60", Category: "Groceries", Discount: "R100 off R500+", URL: "https://www.sixty60.co.za", Emoji: "🛒"},
		}
	case time.Saturday:
		return []Deal{
			{Store: "Ster-Kinekor", Category: "Movies", Discount: "R50 tickets", URL: "https://www.sterkinekor.com", Emoji: "🍿"},
			{Store: "Webtickets", Category: "Events", Discount: "2-for-1 shows", URL: "https://www.webtickets.co.za", Emoji: "🎭"},
			{Store: "Platteland", Category: "Outdoor", Discount: "15% off camping gear", URL: "https://www.platteland.co.za", Emoji: "🏕️"},
		}
	default:
		return []Deal{
			{Store: "Exclusive Books", Category: "Books", Discount: "3 for 2 on bestsellers", URL: "https://www.exclusivebooks.co.za", Emoji: "📚"},
			{Store: "Takealot Books", Category: "Reading", Discount: "Up to 30% off", URL: "https://www.takealot.com/books", Emoji: "📖"},
			{Store: "Audible", Category: "Audiobooks", Discount: "First month free", URL: "https://www.audible.com", Emoji: "🎧"},
		}
	}
}
