package xclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"xpurge/internal/model"
)

func tweetEntry(id, legacyExtra string) string {
	return fmt.Sprintf(`{"entryId":"tweet-%s","sortIndex":"9%s","content":{"entryType":"TimelineTimelineItem","itemContent":{"tweet_results":{"result":{"__typename":"Tweet","rest_id":"%s","legacy":{"id_str":"%s","full_text":"hello %s","created_at":"Wed Oct 10 20:19:24 +0000 2018"%s}}}}}}`,
		id, id, id, id, id, legacyExtra)
}

func cursorJSON(kind, value string) string {
	return fmt.Sprintf(`{"entryId":"cursor-%s","sortIndex":"1","content":{"entryType":"TimelineTimelineCursor","cursorType":"%s","value":"%s"}}`,
		strings.ToLower(kind), kind, value)
}

func timelineJSON(instructions ...string) []byte {
	return []byte(`{"data":{"user":{"result":{"timeline_v2":{"timeline":{"instructions":[` + strings.Join(instructions, ",") + `]}}}}}}`)
}

func addEntries(entries ...string) string {
	return `{"type":"TimelineAddEntries","entries":[` + strings.Join(entries, ",") + `]}`
}

func TestParseTimelineClassifiesEveryItem(t *testing.T) {
	body := timelineJSON(addEntries(
		tweetEntry("1", ""),
		tweetEntry("2", `,"in_reply_to_status_id_str":"77"`),
		tweetEntry("3", `,"retweeted_status_result":{"result":{}}`),
		tweetEntry("4", `,"is_quote_status":true`),
		tweetEntry("5", `,"in_reply_to_user_id_str":"88"`),
		tweetEntry("6", `,"quoted_status_id_str":"99","in_reply_to_status_id_str":"77"`),
		cursorJSON("Top", "T0"),
		cursorJSON("Bottom", "B1"),
	))
	page, err := parseTimeline(body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Kind{
		model.KindOriginal, model.KindReply, model.KindRetweet,
		model.KindRetweet, model.KindReply, model.KindRetweet,
	}
	if len(page.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(page.Items))
	}
	for i, it := range page.Items {
		if it.Kind != want[i] {
			t.Errorf("item %s: kind %q, want %q", it.ID, it.Kind, want[i])
		}
	}
	if page.NextCursor != "B1" {
		t.Fatalf("cursor=%q", page.NextCursor)
	}
}

func TestParseTimelineRTPrefixIsRetweet(t *testing.T) {
	entry := `{"entryId":"tweet-9","sortIndex":"9","content":{"entryType":"TimelineTimelineItem","itemContent":{"tweet_results":{"result":{"legacy":{"id_str":"9","full_text":"RT @someone: hi","created_at":"Wed Oct 10 20:19:24 +0000 2018"}}}}}}`
	page, err := parseTimeline(timelineJSON(addEntries(entry)), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].Kind != model.KindRetweet {
		t.Fatalf("expected one retweet, got %+v", page.Items)
	}
}

func TestParseTimelineNormalizesFields(t *testing.T) {
	page, err := parseTimeline(timelineJSON(addEntries(tweetEntry("42", ""))), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	it := page.Items[0]
	if it.ID != "42" || it.Text != "hello 42" || it.SortIndex != "942" {
		t.Fatalf("unexpected item %+v", it)
	}
	if it.Date != "Oct 10, 2018, 08:19 PM" {
		t.Fatalf("date=%q", it.Date)
	}
	if page.NextCursor != "" {
		t.Fatalf("expected no cursor, got %q", page.NextCursor)
	}
}

func TestParseTimelineUnwrapsVisibilityResults(t *testing.T) {
	entry := `{"entryId":"tweet-5","sortIndex":"5","content":{"entryType":"TimelineTimelineItem","itemContent":{"tweet_results":{"result":{"__typename":"TweetWithVisibilityResults","tweet":{"rest_id":"5","legacy":{"id_str":"5","full_text":"limited","created_at":"Wed Oct 10 20:19:24 +0000 2018"}}}}}}}`
	page, err := parseTimeline(timelineJSON(addEntries(entry)), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].Text != "limited" {
		t.Fatalf("expected unwrapped tweet, got %+v", page.Items)
	}
}

func TestParseTimelineSkipsTombstonesAndMalformedEntries(t *testing.T) {
	tombstone := `{"entryId":"tweet-t","sortIndex":"8","content":{"entryType":"TimelineTimelineItem","itemContent":{"tweet_results":{"result":{"__typename":"TweetTombstone","tombstone":{}}}}}}`
	empty := `{"entryId":"tweet-e","sortIndex":"7","content":{"entryType":"TimelineTimelineItem","itemContent":{"tweet_results":{}}}}`
	malformed := `{"entryId":"tweet-m","content":{"entryType":"TimelineTimelineItem","itemContent":{"tweet_results":{"result":{"legacy":{"id_str":12345}}}}}}`
	body := timelineJSON(addEntries(tweetEntry("1", ""), tombstone, malformed, empty, tweetEntry("2", ""), cursorJSON("Bottom", "NEXT")))
	page, err := parseTimeline(body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "1" || page.Items[1].ID != "2" {
		t.Fatalf("unexpected items %+v", page.Items)
	}
	if page.NextCursor != "NEXT" {
		t.Fatalf("malformed entry must not drop cursor, got %q", page.NextCursor)
	}
}

func TestParseTimelineCursorOnlyPageIsValid(t *testing.T) {
	body := timelineJSON(
		`{"type":"TimelineClearCache"}`,
		addEntries(cursorJSON("Bottom", "KEEP")),
	)
	page, err := parseTimeline(body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 0 || page.NextCursor != "KEEP" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestParseTimelineCursorBeforeItems(t *testing.T) {
	body := timelineJSON(addEntries(cursorJSON("Bottom", "FIRST"), tweetEntry("1", "")))
	page, err := parseTimeline(body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if page.NextCursor != "FIRST" || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestParseTimelineMalformedInstructionKeepsPartialDropsCursor(t *testing.T) {
	body := timelineJSON(
		addEntries(tweetEntry("1", ""), cursorJSON("Bottom", "LOST")),
		`{"type":"TimelineAddEntries","entries":"not-a-list"}`,
		addEntries(tweetEntry("2", "")),
	)
	page, err := parseTimeline(body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "1" {
		t.Fatalf("expected partial page, got %+v", page.Items)
	}
	if page.NextCursor != "" {
		t.Fatalf("expected cursor dropped, got %q", page.NextCursor)
	}
}

func TestParseTimelinePinnedEntryDeduplicated(t *testing.T) {
	pin := `{"type":"TimelinePinEntry","entry":` + tweetEntry("1", "") + `}`
	body := timelineJSON(pin, addEntries(tweetEntry("1", ""), tweetEntry("2", "")))
	page, err := parseTimeline(body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected pinned tweet once, got %+v", page.Items)
	}
}

func TestParseTimelineMissingContainer(t *testing.T) {
	_, err := parseTimeline([]byte(`{"data":{"user":{"result":{"__typename":"UserUnavailable"}}}}`), time.UTC)
	if !errors.Is(err, ErrNoTimeline) {
		t.Fatalf("expected ErrNoTimeline, got %v", err)
	}
	_, err = parseTimeline([]byte(`not json`), time.UTC)
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestParseTimelineAcceptsTimelineKey(t *testing.T) {
	body := []byte(`{"data":{"user":{"result":{"timeline":{"timeline":{"instructions":[` + addEntries(tweetEntry("1", "")) + `]}}}}}}`)
	page, err := parseTimeline(body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
}
