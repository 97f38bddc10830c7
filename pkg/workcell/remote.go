// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package workcell

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/maraxen/pylabpraxis-sub002/pkg/backoff"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

const remoteRetryMaxInterval = 2 * time.Second

// remoteObject mirrors the gateway's handle payload.
type remoteObject struct {
	ObjectFQN string `json:"fqn"`
	AssetID   string `json:"asset_accession_id"`
}

func (o *remoteObject) FQN() string              { return o.ObjectFQN }
func (o *remoteObject) AssetAccessionID() string { return o.AssetID }

// RemoteRuntime drives a driver gateway over HTTP. Transient failures
// (network errors, 5xx) are retried with backoff; 4xx responses are
// permanent.
type RemoteRuntime struct {
	client     *resty.Client
	maxElapsed time.Duration
}

// NewRemoteRuntime creates a gateway client. timeout bounds one request;
// maxRetries scales the overall retry window.
func NewRemoteRuntime(baseURL string, timeout time.Duration, maxRetries int) *RemoteRuntime {
	if maxRetries < 1 {
		maxRetries = 1
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &RemoteRuntime{
		client:     client,
		maxElapsed: time.Duration(maxRetries) * timeout,
	}
}

// post issues one gateway call with retry on transient failures. result may
// be nil for calls with no payload of interest.
func (r *RemoteRuntime) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	op := func() error {
		req := r.client.R().SetContext(ctx)
		if body != nil {
			req = req.SetBody(body)
		}
		if result != nil {
			req = req.SetResult(result)
		}
		resp, err := req.Post(path)
		if err != nil {
			return err
		}
		if resp.IsError() {
			err := fmt.Errorf("gateway %s: status %d: %s", path, resp.StatusCode(), resp.String())
			if resp.StatusCode() >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warnf("gateway %s failed, retrying in %s: %v", path, wait, err)
	}
	return backoff.RetryNotify(op, r.maxElapsed, remoteRetryMaxInterval, notify)
}

func (r *RemoteRuntime) InitializeMachine(ctx context.Context, machine *model.Asset) (RuntimeObject, error) {
	var obj remoteObject
	err := r.post(ctx, "/machines/"+machine.AccessionID+"/initialize", machine, &obj)
	if err != nil {
		return nil, &RuntimeInitError{AssetName: machine.Name, Err: err}
	}
	if obj.AssetID == "" {
		obj.AssetID = machine.AccessionID
	}
	return &obj, nil
}

func (r *RemoteRuntime) ShutdownMachine(ctx context.Context, machine *model.Asset) error {
	return r.post(ctx, "/machines/"+machine.AccessionID+"/shutdown", nil, nil)
}

func (r *RemoteRuntime) CreateOrGetResource(ctx context.Context, resource *model.Asset) (RuntimeObject, error) {
	var obj remoteObject
	if err := r.post(ctx, "/resources/"+resource.AccessionID+"/create", resource, &obj); err != nil {
		return nil, err
	}
	if obj.AssetID == "" {
		obj.AssetID = resource.AccessionID
	}
	return &obj, nil
}

func (r *RemoteRuntime) AssignResourceToDeck(ctx context.Context, resource, deck *model.Asset, positionName string) error {
	return r.post(ctx, "/decks/"+deck.AccessionID+"/assign", map[string]string{
		"resource_accession_id": resource.AccessionID,
		"position_name":         positionName,
	}, nil)
}

func (r *RemoteRuntime) ClearResourceInstance(ctx context.Context, resource *model.Asset) error {
	return r.post(ctx, "/resources/"+resource.AccessionID+"/clear", nil, nil)
}

func (r *RemoteRuntime) ClearDeckPosition(ctx context.Context, deck *model.Asset, positionName string) error {
	return r.post(ctx, "/decks/"+deck.AccessionID+"/positions/clear", map[string]string{
		"position_name": positionName,
	}, nil)
}

var _ Runtime = (*RemoteRuntime)(nil)
