package tidepool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aiwanyun/TidepoolKit/internal/api"
)

// DataSet groups uploaded data points under one server-assigned upload
// identifier. A data set is created locally, sent to the service, and bound
// to its UploadID on success; like all server-identified entities it is an
// immutable value snapshot.
type DataSet struct {
	// UploadID is assigned by the server; empty until the data set has been
	// created.
	UploadID     string         `json:"uploadId,omitempty"`
	DataSetType  string         `json:"dataSetType,omitempty"`
	Client       *DataSetClient `json:"client,omitempty"`
	Deduplicator *Deduplicator  `json:"deduplicator,omitempty"`
	State        string         `json:"dataState,omitempty"`
}

// Data set types.
const (
	DataSetTypeContinuous = "continuous"
	DataSetTypeNormal     = "normal"
)

// Data set states.
const (
	DataSetStateOpen   = "open"
	DataSetStateClosed = "closed"
)

// DataSetClient describes the software that produced a data set.
type DataSetClient struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Deduplicator names the server-side deduplication policy for a data set.
type Deduplicator struct {
	Name string `json:"name"`
}

// Deduplicator policies the platform understands.
const (
	DeduplicatorDataSetDeleteOrigin = "org.tidepool.deduplicator.dataset.delete.origin"
	DeduplicatorNone                = "org.tidepool.deduplicator.none"
)

// CreateDataSet creates a data set for the logged-in user and returns the
// created snapshot with its server-assigned upload identifier. The argument
// is not mutated.
func (c *Client) CreateDataSet(ctx context.Context, dataSet *DataSet) (*DataSet, error) {
	if dataSet == nil {
		return nil, fmt.Errorf("%w: data set is required", ErrRequestInvalid)
	}
	userID, err := c.currentUserID()
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data *DataSet `json:"data"`
	}
	_, err = c.do(ctx, api.Request{
		Method:        http.MethodPost,
		Path:          fmt.Sprintf("/v1/users/%s/data_sets", url.PathEscape(userID)),
		Body:          dataSet,
		Authenticated: true,
		Expect:        api.Expect{JSON: true},
	}, &envelope)
	if err != nil {
		return nil, err
	}
	if envelope.Data == nil || envelope.Data.UploadID == "" {
		return nil, fmt.Errorf("%w: created data set has no upload id", ErrResponseMalformed)
	}
	return envelope.Data, nil
}

// ListDataSets lists the data sets of the logged-in user.
func (c *Client) ListDataSets(ctx context.Context) ([]DataSet, error) {
	userID, err := c.currentUserID()
	if err != nil {
		return nil, err
	}

	var dataSets []DataSet
	_, err = c.do(ctx, api.Request{
		Method:        http.MethodGet,
		Path:          fmt.Sprintf("/v1/users/%s/data_sets", url.PathEscape(userID)),
		Authenticated: true,
		Expect:        api.Expect{JSON: true},
	}, &dataSets)
	if err != nil {
		return nil, err
	}
	return dataSets, nil
}

// CloseDataSet finalizes a data set so no further data can be added to it.
func (c *Client) CloseDataSet(ctx context.Context, uploadID string) error {
	if uploadID == "" {
		return fmt.Errorf("%w: upload id is required", ErrRequestInvalid)
	}

	_, err := c.do(ctx, api.Request{
		Method:        http.MethodPut,
		Path:          fmt.Sprintf("/v1/data_sets/%s", url.PathEscape(uploadID)),
		Body:          &DataSet{State: DataSetStateClosed},
		Authenticated: true,
	}, nil)
	return err
}
