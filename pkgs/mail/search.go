package mail

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
)

// WireDateLayout is the date format used for SINCE/ON/BEFORE predicate
// values, e.g. "05 Mar 24".
const WireDateLayout = "02 Jan 06"

// searchKeywords is the fixed criteria whitelist. Keywords are matched
// case-insensitively on input and rendered uppercase.
var searchKeywords = map[string]struct{}{
	"OR": {}, "AND": {},
	"ALL": {}, "ANSWERED": {}, "BCC": {}, "BEFORE": {}, "BODY": {},
	"CC": {}, "DELETED": {}, "FLAGGED": {}, "FROM": {}, "KEYWORD": {},
	"NEW": {}, "NOT": {}, "OLD": {}, "ON": {}, "RECENT": {}, "SEEN": {},
	"SINCE": {}, "SUBJECT": {}, "TEXT": {}, "TO": {}, "UNANSWERED": {},
	"UNDELETED": {}, "UNFLAGGED": {}, "UNKEYWORD": {}, "UNSEEN": {},
}

type predicate struct {
	keyword  string
	value    string
	hasValue bool
}

// SearchQuery accumulates an ordered list of search predicates against
// the session's selected folder. Predicates render in insertion order
// with no deduplication or implicit AND; OR/NOT are predicates the
// caller inserts explicitly.
type SearchQuery struct {
	session    *Session
	charset    string
	predicates []predicate
}

// NewSearch returns an empty query bound to the session's currently
// selected folder.
func NewSearch(s *Session, charset string) *SearchQuery {
	if charset == "" {
		charset = "UTF-8"
	}
	return &SearchQuery{session: s, charset: charset}
}

// Where appends one predicate. The keyword is validated against the
// criteria whitelist; on an unknown keyword the query is left
// unchanged and a *InvalidCriteriaError is returned. An empty value
// appends a bare keyword.
func (q *SearchQuery) Where(keyword, value string) error {
	keyword = strings.ToUpper(strings.TrimSpace(keyword))
	if _, ok := searchKeywords[keyword]; !ok {
		return &InvalidCriteriaError{Keyword: keyword}
	}
	q.predicates = append(q.predicates, predicate{
		keyword:  keyword,
		value:    value,
		hasValue: value != "",
	})
	return nil
}

// WhereSince restricts to messages dated after t.
func (q *SearchQuery) WhereSince(t time.Time) *SearchQuery {
	q.predicates = append(q.predicates, predicate{"SINCE", t.Format(WireDateLayout), true})
	return q
}

// WhereOn restricts to messages dated exactly t's day.
func (q *SearchQuery) WhereOn(t time.Time) *SearchQuery {
	q.predicates = append(q.predicates, predicate{"ON", t.Format(WireDateLayout), true})
	return q
}

// WhereUnseen restricts to unread messages.
func (q *SearchQuery) WhereUnseen() *SearchQuery {
	q.predicates = append(q.predicates, predicate{keyword: "UNSEEN"})
	return q
}

// Render produces the wire criteria string: space-joined tokens, each
// a bare keyword or `KEYWORD "value"`. Values are quoted verbatim;
// embedded quote characters are not escaped (known limitation, kept
// for wire parity with servers that expect it).
func (q *SearchQuery) Render() string {
	var b strings.Builder
	for _, p := range q.predicates {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.keyword)
		if p.hasValue {
			b.WriteString(` "`)
			b.WriteString(p.value)
			b.WriteString(`"`)
		}
	}
	return strings.TrimSpace(b.String())
}

// Execute runs the query against the selected folder and returns the
// matching message identifiers in server response order; callers
// wanting newest-first must reverse explicitly. Transport failure
// surfaces as a *SearchError.
func (q *SearchQuery) Execute() ([]imap.UID, error) {
	criteria, err := compilePredicates(q.predicates)
	if err != nil {
		return nil, err
	}
	client, err := q.session.conn()
	if err != nil {
		return nil, err
	}
	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &SearchError{Query: q.Render(), Err: err}
	}
	return data.AllUIDs(), nil
}

// FetchAll resolves every matching identifier into a decoded Message,
// keyed by message-id (identifier when the header carries none). An
// empty result set yields an empty map. Any failure aborts the whole
// operation; no partial set is returned.
func (q *SearchQuery) FetchAll() (map[string]*Message, error) {
	uids, err := q.Execute()
	if err != nil {
		return nil, err
	}
	messages := make(map[string]*Message, len(uids))
	for _, uid := range uids {
		msg, err := q.session.DecodeMessage(uid)
		if err != nil {
			return nil, err
		}
		key := msg.MessageID
		if key == "" {
			key = strconv.FormatUint(uint64(uid), 10)
		}
		messages[key] = msg
	}
	return messages, nil
}

// compilePredicates translates the flat predicate list into the
// transport's structured criteria. Adjacent predicates intersect
// (IMAP's implicit AND); NOT negates the following predicate and OR
// combines the following two.
func compilePredicates(preds []predicate) (*imap.SearchCriteria, error) {
	criteria := &imap.SearchCriteria{}
	for i := 0; i < len(preds); i++ {
		switch preds[i].keyword {
		case "ALL", "AND":
			// Intersection is implicit.
		case "NOT":
			if i+1 >= len(preds) {
				return nil, fmt.Errorf("imap: NOT needs a following criteria")
			}
			sub := &imap.SearchCriteria{}
			if err := applyPredicate(sub, preds[i+1]); err != nil {
				return nil, err
			}
			criteria.Not = append(criteria.Not, *sub)
			i++
		case "OR":
			if i+2 >= len(preds) {
				return nil, fmt.Errorf("imap: OR needs two following criteria")
			}
			var left, right imap.SearchCriteria
			if err := applyPredicate(&left, preds[i+1]); err != nil {
				return nil, err
			}
			if err := applyPredicate(&right, preds[i+2]); err != nil {
				return nil, err
			}
			criteria.Or = append(criteria.Or, [2]imap.SearchCriteria{left, right})
			i += 2
		default:
			if err := applyPredicate(criteria, preds[i]); err != nil {
				return nil, err
			}
		}
	}
	return criteria, nil
}

func applyPredicate(criteria *imap.SearchCriteria, p predicate) error {
	switch p.keyword {
	case "ALL", "AND":
		return nil
	case "ANSWERED":
		criteria.Flag = append(criteria.Flag, imap.FlagAnswered)
	case "DELETED":
		criteria.Flag = append(criteria.Flag, imap.FlagDeleted)
	case "FLAGGED":
		criteria.Flag = append(criteria.Flag, imap.FlagFlagged)
	case "SEEN":
		criteria.Flag = append(criteria.Flag, imap.FlagSeen)
	case "RECENT":
		criteria.Flag = append(criteria.Flag, imap.Flag(`\Recent`))
	case "NEW":
		criteria.Flag = append(criteria.Flag, imap.Flag(`\Recent`))
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagSeen)
	case "OLD":
		criteria.NotFlag = append(criteria.NotFlag, imap.Flag(`\Recent`))
	case "UNANSWERED":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagAnswered)
	case "UNDELETED":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagDeleted)
	case "UNFLAGGED":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagFlagged)
	case "UNSEEN":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagSeen)
	case "KEYWORD":
		criteria.Flag = append(criteria.Flag, imap.Flag(p.value))
	case "UNKEYWORD":
		criteria.NotFlag = append(criteria.NotFlag, imap.Flag(p.value))
	case "SINCE", "ON", "BEFORE":
		day, err := time.Parse(WireDateLayout, p.value)
		if err != nil {
			return fmt.Errorf("imap: %s wants a %q date, got %q", p.keyword, WireDateLayout, p.value)
		}
		switch p.keyword {
		case "SINCE":
			criteria.Since = day
		case "BEFORE":
			criteria.Before = day
		case "ON":
			criteria.Since = day
			criteria.Before = day.AddDate(0, 0, 1)
		}
	case "BCC", "CC", "FROM", "TO", "SUBJECT":
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key:   headerFieldName(p.keyword),
			Value: p.value,
		})
	case "BODY":
		criteria.Body = append(criteria.Body, p.value)
	case "TEXT":
		criteria.Text = append(criteria.Text, p.value)
	default:
		return &InvalidCriteriaError{Keyword: p.keyword}
	}
	return nil
}

func headerFieldName(keyword string) string {
	switch keyword {
	case "BCC":
		return "Bcc"
	case "CC":
		return "Cc"
	case "FROM":
		return "From"
	case "TO":
		return "To"
	default:
		return "Subject"
	}
}
