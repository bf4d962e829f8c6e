// Package scrape pulls raw event fragments out of the rendered calendar
// widget using headless Chromium. The widget is FullCalendar-based: events
// render as `a.fc-event` anchors inside day cells that carry a `data-date`
// attribute, which is the structural date token the parser prefers over
// text extraction.
package scrape

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	"subsplash-sync/internal/event"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxMonths      = 6
	DefaultMaxEmptyMonths = 3

	// renderSettle gives FullCalendar time to paint events after the
	// grid container appears or after a month navigation.
	renderSettle = 2 * time.Second
)

// fragmentJS collects every rendered event on the current month view. The
// structural date comes from the closest day cell; the sibling time and
// title elements are kept separate so the parser can prefer the structural
// path.
const fragmentJS = `
Array.from(document.querySelectorAll('a.fc-event')).map(function (el) {
	var cell = el.closest('td[data-date]');
	var timeEl = el.querySelector('.fc-event-time');
	var titleEl = el.querySelector('.fc-event-title');
	var text = titleEl ? titleEl.innerText : el.innerText;
	return {
		lines: text.split('\n').map(function (s) { return s.trim(); }).filter(Boolean),
		time: timeEl ? timeEl.innerText.trim() : '',
		date: cell ? cell.getAttribute('data-date') : '',
		url: el.href || ''
	};
})
`

// nextMonthJS clicks the widget's next-month control; false when the
// control is missing or disabled.
const nextMonthJS = `
(function () {
	var btn = document.querySelector('.fc-next-button');
	if (!btn || btn.disabled) { return false; }
	btn.click();
	return true;
})()
`

type fragmentDTO struct {
	Lines []string `json:"lines"`
	Time  string   `json:"time"`
	Date  string   `json:"date"`
	URL   string   `json:"url"`
}

// Scraper fetches fragments from one widget URL per call, walking forward
// month by month until MaxMonths views have been checked or
// MaxEmptyMonths consecutive views held no events.
type Scraper struct {
	Timeout        time.Duration
	MaxMonths      int
	MaxEmptyMonths int
}

// NewScraper returns a Scraper with the default scan bounds.
func NewScraper() *Scraper {
	return &Scraper{
		Timeout:        DefaultTimeout,
		MaxMonths:      DefaultMaxMonths,
		MaxEmptyMonths: DefaultMaxEmptyMonths,
	}
}

// Fetch loads the widget page and returns the raw fragments of every month
// view visited. Each call uses a fresh browser context; the timeout bounds
// the whole visit.
func (s *Scraper) Fetch(parentCtx context.Context, url string) ([]event.RawFragment, error) {
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`.fc-daygrid-body, .fc-view-harness`, chromedp.ByQuery),
		chromedp.Sleep(renderSettle),
	); err != nil {
		return nil, fmt.Errorf("failed to load calendar widget %s: %w", url, err)
	}

	maxMonths := s.MaxMonths
	if maxMonths <= 0 {
		maxMonths = DefaultMaxMonths
	}
	maxEmpty := s.MaxEmptyMonths
	if maxEmpty <= 0 {
		maxEmpty = DefaultMaxEmptyMonths
	}

	var all []event.RawFragment
	emptyMonths := 0

	for month := 0; month < maxMonths && emptyMonths < maxEmpty; month++ {
		frags, err := s.currentMonthFragments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read month view %d: %w", month+1, err)
		}

		if len(frags) == 0 {
			emptyMonths++
			log.Printf("Month view %d: no events (consecutive empty: %d)", month+1, emptyMonths)
		} else {
			emptyMonths = 0
			all = append(all, frags...)
			log.Printf("Month view %d: %d event fragments", month+1, len(frags))
		}

		if month+1 < maxMonths {
			moved, err := s.nextMonth(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to navigate to next month: %w", err)
			}
			if !moved {
				log.Printf("Next-month control unavailable, stopping after %d views", month+1)
				break
			}
		}
	}

	return all, nil
}

func (s *Scraper) currentMonthFragments(ctx context.Context) ([]event.RawFragment, error) {
	var dtos []fragmentDTO
	if err := chromedp.Run(ctx, chromedp.Evaluate(fragmentJS, &dtos)); err != nil {
		return nil, err
	}

	frags := make([]event.RawFragment, 0, len(dtos))
	for _, d := range dtos {
		if len(d.Lines) == 0 && d.Time == "" {
			continue
		}
		frags = append(frags, event.RawFragment{
			Lines:     d.Lines,
			TimeHint:  d.Time,
			DateToken: d.Date,
			SourceURL: d.URL,
		})
	}
	return frags, nil
}

func (s *Scraper) nextMonth(ctx context.Context) (bool, error) {
	var moved bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(nextMonthJS, &moved)); err != nil {
		return false, err
	}
	if moved {
		if err := chromedp.Run(ctx, chromedp.Sleep(renderSettle)); err != nil {
			return false, err
		}
	}
	return moved, nil
}
