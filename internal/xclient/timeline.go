package xclient

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"xpurge/internal/logging"
	"xpurge/internal/model"
)

// ErrNoTimeline is returned when the response lacks the instruction list altogether.
var ErrNoTimeline = errors.New("timeline instructions missing from response")

const displayDateLayout = "Jan 2, 2006, 03:04 PM"

// timelineEntry is one parsed timeline entry. Exactly one of the variants below.
type timelineEntry interface{ isTimelineEntry() }

// itemEntry is a post that normalized cleanly.
type itemEntry struct{ item model.Item }

// tombstoneEntry is a timeline item without a usable post record (deleted,
// withheld, unavailable).
type tombstoneEntry struct{ entryID string }

// cursorEntry is a pagination marker. Only the bottom cursor continues the listing.
type cursorEntry struct {
	value  string
	bottom bool
}

func (itemEntry) isTimelineEntry()      {}
func (tombstoneEntry) isTimelineEntry() {}
func (cursorEntry) isTimelineEntry()    {}

type rawEntry struct {
	EntryID   string `json:"entryId"`
	SortIndex string `json:"sortIndex"`
	Content   struct {
		EntryType   string `json:"entryType"`
		CursorType  string `json:"cursorType"`
		Value       string `json:"value"`
		ItemContent struct {
			TweetResults struct {
				Result *rawTweetResult `json:"result"`
			} `json:"tweet_results"`
		} `json:"itemContent"`
	} `json:"content"`
}

// rawTweetResult covers both a plain Tweet and the TweetWithVisibilityResults
// wrapper, which nests the real record under "tweet".
type rawTweetResult struct {
	RestID             string          `json:"rest_id"`
	Tweet              *rawTweetResult `json:"tweet"`
	Legacy             *rawLegacy      `json:"legacy"`
	QuotedStatusResult json.RawMessage `json:"quoted_status_result"`
}

type rawLegacy struct {
	IDStr                 string          `json:"id_str"`
	FullText              string          `json:"full_text"`
	Text                  string          `json:"text"`
	CreatedAt             string          `json:"created_at"`
	RetweetedStatusResult json.RawMessage `json:"retweeted_status_result"`
	InReplyToStatusIDStr  string          `json:"in_reply_to_status_id_str"`
	InReplyToUserIDStr    string          `json:"in_reply_to_user_id_str"`
	QuotedStatusIDStr     string          `json:"quoted_status_id_str"`
	IsQuoteStatus         bool            `json:"is_quote_status"`
}

type rawInstruction struct {
	Type    string            `json:"type"`
	Entries []json.RawMessage `json:"entries"`
	Entry   json.RawMessage   `json:"entry"`
}

type timelineBody struct {
	Instructions []json.RawMessage `json:"instructions"`
}

// parseTimeline normalizes a UserTweets response body. Only a body that is not
// JSON or has no instruction list is an error. A malformed entry is skipped; a
// malformed instruction ends the walk and drops the cursor, keeping the items
// normalized so far.
func parseTimeline(body []byte, loc *time.Location) (model.PageResult, error) {
	var doc struct {
		Data struct {
			User struct {
				Result struct {
					TimelineV2 *struct {
						Timeline *timelineBody `json:"timeline"`
					} `json:"timeline_v2"`
					Timeline *struct {
						Timeline *timelineBody `json:"timeline"`
					} `json:"timeline"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return model.PageResult{}, err
	}
	var tl *timelineBody
	res := doc.Data.User.Result
	switch {
	case res.TimelineV2 != nil && res.TimelineV2.Timeline != nil:
		tl = res.TimelineV2.Timeline
	case res.Timeline != nil && res.Timeline.Timeline != nil:
		tl = res.Timeline.Timeline
	default:
		return model.PageResult{}, ErrNoTimeline
	}

	var page model.PageResult
	seen := make(map[string]bool)
	skipped := 0
	collect := func(raw json.RawMessage) {
		e, err := parseEntry(raw, loc)
		if err != nil {
			skipped++
			logging.Debug("timeline_entry_malformed", map[string]any{"error": err.Error()})
			return
		}
		switch v := e.(type) {
		case itemEntry:
			if !seen[v.item.ID] {
				seen[v.item.ID] = true
				page.Items = append(page.Items, v.item)
			}
		case tombstoneEntry:
			skipped++
		case cursorEntry:
			if v.bottom {
				page.NextCursor = v.value
			}
		}
	}

	for _, raw := range tl.Instructions {
		var ins rawInstruction
		if err := json.Unmarshal(raw, &ins); err != nil {
			logging.Warn("timeline_instruction_malformed", map[string]any{"error": err.Error(), "items": len(page.Items)})
			page.NextCursor = ""
			return page, nil
		}
		switch ins.Type {
		case "TimelineAddEntries":
			for _, entry := range ins.Entries {
				collect(entry)
			}
		case "TimelinePinEntry":
			if len(ins.Entry) > 0 {
				collect(ins.Entry)
			}
		}
	}
	if skipped > 0 {
		logging.Debug("timeline_entries_skipped", map[string]any{"skipped": skipped, "items": len(page.Items)})
	}
	return page, nil
}

// parseEntry returns nil for entry kinds the listing does not use.
func parseEntry(raw json.RawMessage, loc *time.Location) (timelineEntry, error) {
	var e rawEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	switch e.Content.EntryType {
	case "TimelineTimelineItem":
		res := e.Content.ItemContent.TweetResults.Result
		if res == nil {
			return tombstoneEntry{entryID: e.EntryID}, nil
		}
		tw := res
		if res.Tweet != nil {
			tw = res.Tweet
		}
		if tw.Legacy == nil {
			return tombstoneEntry{entryID: e.EntryID}, nil
		}
		item, ok := normalize(tw, e.SortIndex, loc)
		if !ok {
			return tombstoneEntry{entryID: e.EntryID}, nil
		}
		return itemEntry{item: item}, nil
	case "TimelineTimelineCursor":
		return cursorEntry{value: e.Content.Value, bottom: e.Content.CursorType == "Bottom"}, nil
	}
	return nil, nil
}

func normalize(tw *rawTweetResult, sortIndex string, loc *time.Location) (model.Item, bool) {
	l := tw.Legacy
	id := l.IDStr
	if id == "" {
		id = tw.RestID
	}
	if id == "" {
		return model.Item{}, false
	}
	text := l.FullText
	if text == "" {
		text = l.Text
	}
	item := model.Item{
		ID:        id,
		Text:      text,
		SortIndex: sortIndex,
		Kind:      classify(tw),
	}
	// Example: Wed Oct 10 20:19:24 +0000 2018
	if ts, err := time.Parse(time.RubyDate, l.CreatedAt); err == nil {
		item.CreatedAt = ts
		item.Date = ts.In(loc).Format(displayDateLayout)
	}
	return item, true
}

// classify merges reposts and quote posts into one bucket; replies come next.
func classify(tw *rawTweetResult) model.Kind {
	l := tw.Legacy
	text := l.FullText
	if text == "" {
		text = l.Text
	}
	repost := present(l.RetweetedStatusResult) || strings.HasPrefix(text, "RT @")
	quote := present(tw.QuotedStatusResult) || l.QuotedStatusIDStr != "" || l.IsQuoteStatus
	switch {
	case repost || quote:
		return model.KindRetweet
	case l.InReplyToStatusIDStr != "" || l.InReplyToUserIDStr != "":
		return model.KindReply
	default:
		return model.KindOriginal
	}
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
