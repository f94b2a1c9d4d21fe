package tidepool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aiwanyun/TidepoolKit/internal/api"
)

// SelectorSet tracks the deletable selectors derived from accepted datums.
// It is call-scoped state owned solely by the caller that created it and is
// not safe for concurrent use. The set is bound to the session that produced
// it; after logout or re-login it can no longer be consumed.
type SelectorSet struct {
	dataSetID string
	userID    string
	selectors []Selector
}

// DataSetID returns the data set the selectors belong to.
func (s *SelectorSet) DataSetID() string {
	return s.dataSetID
}

// Len returns the number of tracked selectors.
func (s *SelectorSet) Len() int {
	return len(s.selectors)
}

// Selectors returns a copy of the tracked selectors.
func (s *SelectorSet) Selectors() []Selector {
	out := make([]Selector, len(s.selectors))
	copy(out, s.selectors)
	return out
}

// CreateDatums submits a batch of datums to a data set. On success it
// returns the accepted datums and a SelectorSet addressing every accepted
// item for later deletion.
//
// A malformed-request outcome is terminal for the whole call: the service
// rejected the request, not individual records. The returned error is a
// *RequestMalformedError whose details' source pointers identify the
// submitted records they refer to; no selectors are derived.
func (c *Client) CreateDatums(ctx context.Context, dataSetID string, datums []Datum) ([]Datum, *SelectorSet, error) {
	if dataSetID == "" {
		return nil, nil, fmt.Errorf("%w: data set id is required", ErrRequestInvalid)
	}
	if len(datums) == 0 {
		return nil, nil, fmt.Errorf("%w: datums are required", ErrRequestInvalid)
	}
	userID, err := c.currentUserID()
	if err != nil {
		return nil, nil, err
	}

	var accepted []Datum
	_, err = c.do(ctx, api.Request{
		Method:        http.MethodPost,
		Path:          fmt.Sprintf("/v1/data_sets/%s/data", url.PathEscape(dataSetID)),
		Body:          datums,
		Authenticated: true,
		Expect:        api.Expect{JSON: true},
	}, &accepted)
	if err != nil {
		return nil, nil, err
	}
	if len(accepted) == 0 {
		// The service accepted the batch but echoed nothing back; fall back
		// to the submitted records for selector derivation.
		accepted = datums
	}

	set := &SelectorSet{dataSetID: dataSetID, userID: userID}
	for i := range accepted {
		if selector, ok := selectorForDatum(&accepted[i]); ok {
			set.selectors = append(set.selectors, selector)
		}
	}

	c.log.Debug().
		Str("dataSetId", dataSetID).
		Int("accepted", len(accepted)).
		Int("selectors", set.Len()).
		Msg("datums created")

	return accepted, set, nil
}

// DataPage is the partitioned result of a bulk listing. Malformed holds the
// raw fragments that failed to decode against the expected schema; a
// minority of unparseable records does not block access to the majority
// that parsed.
type DataPage struct {
	Data      []Datum
	Malformed []json.RawMessage
}

// DataFilter narrows a bulk listing.
type DataFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Types     []string
}

func (f *DataFilter) query() url.Values {
	if f == nil {
		return nil
	}
	query := url.Values{}
	if f.StartTime != nil {
		query.Set("startDate", f.StartTime.UTC().Format(time.RFC3339Nano))
	}
	if f.EndTime != nil {
		query.Set("endDate", f.EndTime.UTC().Format(time.RFC3339Nano))
	}
	for _, datumType := range f.Types {
		query.Add("type", datumType)
	}
	return query
}

// ListData lists the logged-in user's data, partitioned into well-formed
// datums and malformed raw fragments. Pass a nil filter for everything.
func (c *Client) ListData(ctx context.Context, filter *DataFilter) (*DataPage, error) {
	userID, err := c.currentUserID()
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	_, err = c.do(ctx, api.Request{
		Method:        http.MethodGet,
		Path:          fmt.Sprintf("/data/%s", url.PathEscape(userID)),
		Query:         filter.query(),
		Authenticated: true,
		Expect:        api.Expect{JSON: true},
	}, &records)
	if err != nil {
		return nil, err
	}

	page := partitionData(records)
	c.log.Debug().
		Int("wellFormed", len(page.Data)).
		Int("malformed", len(page.Malformed)).
		Msg("data listed")
	return page, nil
}

// partitionData splits raw records into decoded datums and the fragments
// that failed to decode or miss required fields.
func partitionData(records []json.RawMessage) *DataPage {
	page := &DataPage{}
	for _, record := range records {
		var datum Datum
		if err := json.Unmarshal(record, &datum); err != nil || !datum.wellFormed() {
			page.Malformed = append(page.Malformed, record)
			continue
		}
		page.Data = append(page.Data, datum)
	}
	return page
}

// DeleteData deletes the datums addressed by the selector set. The delete is
// one request; on failure the set keeps its selectors so the caller can
// retry with the same set, and on success the set is emptied. A set derived
// under a different session than the current one is refused.
func (c *Client) DeleteData(ctx context.Context, set *SelectorSet) error {
	if set == nil || set.Len() == 0 {
		return fmt.Errorf("%w: selector set is empty", ErrRequestInvalid)
	}

	session := c.sessions.Current()
	if session == nil || session.UserID != set.userID {
		return ErrSessionMissing
	}

	_, err := c.do(ctx, api.Request{
		Method:        http.MethodDelete,
		Path:          fmt.Sprintf("/v1/data_sets/%s/data", url.PathEscape(set.dataSetID)),
		Body:          set.selectors,
		Authenticated: true,
	}, nil)
	if err != nil {
		return err
	}

	set.selectors = nil
	return nil
}
