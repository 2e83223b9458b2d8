package cloudapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/openfroyo/machine-sdc/pkg/machine"
)

// machineRecord is the subset of a CloudAPI machine record this client
// decodes. The full record is preserved verbatim by RawMachine.
type machineRecord struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	State string            `json:"state"`
	Tags  map[string]string `json:"tags"`
}

func (mr *machineRecord) toMachine() *machine.Machine {
	return &machine.Machine{
		ID:     mr.ID,
		Name:   mr.Name,
		Status: machine.Status(mr.State),
		Tags:   mr.Tags,
	}
}

// ListMachines returns the machines matching the filter. Tag filters are
// passed as tag.<key> query parameters, the status filter as state.
func (c *Client) ListMachines(ctx context.Context, filter machine.ListFilter) ([]*machine.Machine, error) {
	query := url.Values{}
	for k, v := range filter.Tags {
		query.Set("tag."+k, v)
	}
	if filter.Status != "" {
		query.Set("state", string(filter.Status))
	}

	body, err := c.do(ctx, http.MethodGet, "machines", query, nil)
	if err != nil {
		return nil, err
	}

	var records []machineRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decoding machine list: %w", err)
	}

	machines := make([]*machine.Machine, len(records))
	for i := range records {
		machines[i] = records[i].toMachine()
	}
	return machines, nil
}

// GetMachine returns a single machine by ID.
func (c *Client) GetMachine(ctx context.Context, id string) (*machine.Machine, error) {
	body, err := c.do(ctx, http.MethodGet, "machines/"+id, nil, nil)
	if err != nil {
		return nil, err
	}

	var record machineRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decoding machine %s: %w", id, err)
	}
	return record.toMachine(), nil
}

// CreateMachine provisions a new machine. Tags ride along as tag.<key>
// body fields, the form CloudAPI expects.
func (c *Client) CreateMachine(ctx context.Context, opts machine.CreateOptions) (*machine.Machine, error) {
	payload := map[string]interface{}{
		"image": opts.Image,
	}
	if opts.Name != "" {
		payload["name"] = opts.Name
	}
	if opts.Package != "" {
		payload["package"] = opts.Package
	}
	if len(opts.Networks) > 0 {
		payload["networks"] = opts.Networks
	}
	for k, v := range opts.Tags {
		payload["tag."+k] = v
	}

	body, err := c.do(ctx, http.MethodPost, "machines", nil, payload)
	if err != nil {
		return nil, err
	}

	var record machineRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decoding created machine: %w", err)
	}
	return record.toMachine(), nil
}

// StopMachine requests a stop of the machine.
func (c *Client) StopMachine(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("action", "stop")
	_, err := c.do(ctx, http.MethodPost, "machines/"+id, query, nil)
	return err
}

// DeleteMachine destroys the machine.
func (c *Client) DeleteMachine(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "machines/"+id, nil, nil)
	return err
}

// RawMachine returns the machine's full provider record exactly as
// CloudAPI serialized it.
func (c *Client) RawMachine(ctx context.Context, id string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "machines/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// interface conformance check
var _ machine.CloudAPI = (*Client)(nil)
