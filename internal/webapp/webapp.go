// Package webapp reconciles web application mounts against the runtime that
// serves them. The runtime is external; this package only walks the change
// list and calls its terminate/start boundary.
package webapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stackplane/stackplane/infra"
)

// ErrNotFound signals a terminate call for an app the runtime is not serving.
var ErrNotFound = errors.New("web app not found")

// Runtime is the boundary to the external web app runtime.
type Runtime interface {
	Terminate(ctx context.Context, name string) error
	Start(ctx context.Context, app infra.WebApp) error
}

// ExecuteChanges converges each changed web app independently. Web apps have
// no schedules and no cross-object dependencies: Added and the after side of
// Updated always start, Removed terminates, and termination of something not
// running is expected.
func ExecuteChanges(ctx context.Context, rt Runtime, changes []infra.Change[infra.WebApp]) {
	if len(changes) == 0 {
		log.Info().Msg("no web app changes to execute")
		return
	}

	log.Info().Int("count", len(changes)).Msg("executing web app changes")

	for _, change := range changes {
		switch change.Kind {
		case infra.ChangeAdded:
			terminate(ctx, rt, change.After.Name)
			start(ctx, rt, *change.After)
		case infra.ChangeRemoved:
			terminate(ctx, rt, change.Before.Name)
		case infra.ChangeUpdated:
			terminate(ctx, rt, change.Before.Name)
			start(ctx, rt, *change.After)
		}
	}
}

func terminate(ctx context.Context, rt Runtime, name string) {
	if err := rt.Terminate(ctx, name); err != nil {
		log.Debug().Err(err).Str("web_app", name).Msg("could not terminate web app")
		return
	}
	log.Info().Str("web_app", name).Msg("terminated web app")
}

func start(ctx context.Context, rt Runtime, app infra.WebApp) {
	if err := rt.Start(ctx, app); err != nil {
		log.Error().Err(err).Str("web_app", app.Name).Msg("failed to start web app")
		return
	}
	log.Info().Str("web_app", app.Name).Str("mount_path", app.MountPath).Msg("started web app")
}

// HTTPRuntime drives a runtime over its management API.
type HTTPRuntime struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRuntime builds a runtime client for the given endpoint.
func NewHTTPRuntime(baseURL string) *HTTPRuntime {
	return &HTTPRuntime{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *HTTPRuntime) Terminate(ctx context.Context, name string) error {
	endpoint := fmt.Sprintf("%s/apps/%s", r.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("terminate %q: %w", name, ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("terminate %q: runtime returned %d", name, resp.StatusCode)
	}
	return nil
}

func (r *HTTPRuntime) Start(ctx context.Context, app infra.WebApp) error {
	endpoint := fmt.Sprintf("%s/apps/%s?mount_path=%s",
		r.baseURL, url.PathEscape(app.Name), url.QueryEscape(app.MountPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("start %q: runtime returned %d", app.Name, resp.StatusCode)
	}
	return nil
}
