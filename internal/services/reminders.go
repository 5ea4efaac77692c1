package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/terraincognita07/daywindow/internal/models"
)

const (
	defaultTelegramAPIBase = "https://api.telegram.org"
	reminderHorizon        = 24 * time.Hour
	maxSentReminderKeys    = 500
)

type Reminder struct {
	TaskID  string
	UserID  uint
	Title   string
	Start   time.Time
	Minutes int
	Message string
}

type ReminderSender interface {
	Send(ctx context.Context, message string) error
}

type PreferencesLister interface {
	ListAll(ctx context.Context) ([]models.UserPreferences, error)
}

type TelegramSender struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegramSender returns nil when either credential is missing.
func NewTelegramSender(botToken string, chatID string) *TelegramSender {
	botToken = strings.TrimSpace(botToken)
	chatID = strings.TrimSpace(chatID)
	if botToken == "" || chatID == "" {
		return nil
	}
	return &TelegramSender{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultTelegramAPIBase,
		client: &http.Client{
			Timeout: 8 * time.Second,
		},
	}
}

func (sender *TelegramSender) WithBaseURL(baseURL string) *TelegramSender {
	if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
		sender.baseURL = trimmed
	}
	return sender
}

func (sender *TelegramSender) Send(ctx context.Context, message string) error {
	values := url.Values{}
	values.Set("chat_id", sender.chatID)
	values.Set("text", message)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", sender.baseURL, sender.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := sender.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

type ReminderService struct {
	preferences PreferencesLister
	tasks       TaskRepository
	sender      ReminderSender
	lead        time.Duration
	interval    time.Duration
	clock       func() time.Time
	mu          sync.Mutex
	sent        map[string]time.Time
}

func NewReminderService(preferences PreferencesLister, tasks TaskRepository, sender ReminderSender, lead time.Duration, interval time.Duration) *ReminderService {
	if interval <= 0 {
		interval = time.Minute
	}
	if lead < 0 {
		lead = 0
	}
	return &ReminderService{
		preferences: preferences,
		tasks:       tasks,
		sender:      sender,
		lead:        lead,
		interval:    interval,
		clock:       time.Now,
		sent:        make(map[string]time.Time),
	}
}

func (service *ReminderService) WithClock(clock func() time.Time) *ReminderService {
	if clock != nil {
		service.clock = clock
	}
	return service
}

func (service *ReminderService) Enabled() bool {
	return service.sender != nil
}

func (service *ReminderService) Start(ctx context.Context) {
	if !service.Enabled() {
		return
	}

	ticker := time.NewTicker(service.interval)
	go func() {
		defer ticker.Stop()

		service.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce sends every reminder due at the current tick and returns how many
// were delivered.
func (service *ReminderService) RunOnce(ctx context.Context) int {
	rows, err := service.preferences.ListAll(ctx)
	if err != nil {
		log.WithError(err).Error("reminders: list preferences failed")
		return 0
	}

	now := service.clock()
	delivered := 0
	for _, preferences := range rows {
		window, err := WindowSettingsFromPreferences(preferences).Compute(now)
		if err != nil {
			log.WithError(err).WithField("user_id", preferences.UserID).Warn("reminders: invalid preferences")
			continue
		}

		tasks, err := service.tasks.ListByWindowRange(ctx, preferences.UserID, window.DateKey, window.DateKey)
		if err != nil {
			log.WithError(err).WithField("user_id", preferences.UserID).Error("reminders: list tasks failed")
			continue
		}

		for _, reminder := range DueReminders(tasks, now, service.lead, service.interval) {
			if !service.shouldSend(reminder.key(), now) {
				continue
			}
			if err := service.sender.Send(ctx, reminder.Message); err != nil {
				log.WithError(err).WithField("task_id", reminder.TaskID).Warn("reminders: send failed")
				continue
			}
			delivered++
		}
	}
	return delivered
}

func (service *ReminderService) shouldSend(key string, now time.Time) bool {
	service.mu.Lock()
	defer service.mu.Unlock()

	if _, ok := service.sent[key]; ok {
		return false
	}

	if len(service.sent) >= maxSentReminderKeys {
		for existing, sentAt := range service.sent {
			if now.Sub(sentAt) > reminderHorizon {
				delete(service.sent, existing)
			}
		}
		if len(service.sent) >= maxSentReminderKeys {
			service.sent = make(map[string]time.Time)
		}
	}
	service.sent[key] = now
	return true
}

// DueReminders returns the reminders that fall inside the tick ending at now:
// one lead minutes before the start and one when the task starts. Tasks that
// are completed, archived, unscheduled or more than a day away are skipped.
func DueReminders(tasks []models.Task, now time.Time, lead time.Duration, interval time.Duration) []Reminder {
	if interval <= 0 {
		interval = time.Minute
	}
	reminders := make([]Reminder, 0)
	for _, task := range tasks {
		if !task.IsScheduled() || task.Completed || task.IsArchived() {
			continue
		}
		start := *task.StartTime
		until := start.Sub(now)
		if until > reminderHorizon {
			continue
		}

		if lead > 0 && dueInTick(start.Add(-lead), now, interval) {
			reminders = append(reminders, newReminder(task, start, now))
		}
		if dueInTick(start, now, interval) {
			reminders = append(reminders, newReminder(task, start, now))
		}
	}
	return reminders
}

func dueInTick(at time.Time, now time.Time, interval time.Duration) bool {
	return !at.After(now) && now.Sub(at) < interval
}

func newReminder(task models.Task, start time.Time, now time.Time) Reminder {
	minutes := int(math.Ceil(start.Sub(now).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	return Reminder{
		TaskID:  task.ID,
		UserID:  task.UserID,
		Title:   task.Title,
		Start:   start,
		Minutes: minutes,
		Message: ReminderMessage(task.Title, minutes),
	}
}

func ReminderMessage(title string, minutes int) string {
	if minutes <= 0 {
		return fmt.Sprintf("%s: Starting now!", title)
	}
	if minutes == 1 {
		return fmt.Sprintf("%s: Starts in 1 minute", title)
	}
	return fmt.Sprintf("%s: Starts in %d minutes", title, minutes)
}

func (reminder Reminder) key() string {
	return fmt.Sprintf("%s:%d:%d", reminder.TaskID, reminder.Start.Unix(), reminder.Minutes)
}
