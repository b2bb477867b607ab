package gwallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// UpdateMode selects between a partial and a full update.
type UpdateMode int

const (
	// UpdatePartial sends the set fields with PATCH.
	UpdatePartial UpdateMode = iota
	// UpdateFull replaces the resource with PUT.
	UpdateFull
)

// entryFor resolves name and checks that it permits op.
func (c *Client) entryFor(name string, op Capability) (*RegistryEntry, error) {
	entry, err := c.registry.LookupByName(name)
	if err != nil {
		return nil, err
	}
	if err := entry.assert(op); err != nil {
		return nil, err
	}
	return entry, nil
}

func (c *Client) instanceURL(entry *RegistryEntry, id, subPath string) string {
	return c.entryURL(entry, "/"+url.PathEscape(id)+subPath)
}

// Create inserts payload and returns the stored resource.
// It returns [ErrAlreadyExists] if a resource with the same id exists.
func Create[T Resource](ctx context.Context, c *Client, payload T) (T, error) {
	var out T

	entry, err := c.entryFor(payload.ResourceName(), CapCreate)
	if err != nil {
		return out, err
	}
	if err := validate(payload); err != nil {
		return out, fmt.Errorf("create %s: %w: %w", entry.Name, ErrInvalidArgument, err)
	}

	err = c.doJSON(ctx, exchange{
		method:   http.MethodPost,
		url:      c.entryURL(entry, ""),
		body:     payload,
		resource: entry.Name,
		id:       payload.ResourceID(),
	}, &out)

	return out, err
}

// Read returns the resource of type T identified by id.
// It returns [ErrNotFound] if it does not exist.
func Read[T Resource](ctx context.Context, c *Client, id string) (T, error) {
	var out T
	if err := c.read(ctx, nameOf[T](), id, &out); err != nil {
		return out, err
	}
	return out, nil
}

// ReadByName returns the resource registered as name identified by id,
// decoded into the registry's model.
func (c *Client) ReadByName(ctx context.Context, name, id string) (Resource, error) {
	entry, err := c.registry.LookupByName(name)
	if err != nil {
		return nil, err
	}
	if entry.New == nil {
		return nil, fmt.Errorf("%s has no model: %w", name, ErrCapability)
	}

	out := entry.New()
	if err := c.read(ctx, name, id, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) read(ctx context.Context, name, id string, out any) error {
	entry, err := c.entryFor(name, CapRead)
	if err != nil {
		return err
	}

	err = c.doJSON(ctx, exchange{
		method:   http.MethodGet,
		url:      c.instanceURL(entry, id, ""),
		resource: entry.Name,
		id:       id,
	}, out)
	if err != nil {
		return err
	}

	if err := validate(out); err != nil {
		return fmt.Errorf("read %s %q: %w", entry.Name, id, err)
	}
	return nil
}

// ReadFields returns only the requested top-level fields of a resource.
// The result is not validated against the model since it is partial.
func (c *Client) ReadFields(ctx context.Context, name, id string, fields ...string) (map[string]any, error) {
	entry, err := c.entryFor(name, CapRead)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("read %s fields: empty field mask: %w", name, ErrInvalidArgument)
	}

	var full map[string]any
	err = c.doJSON(ctx, exchange{
		method:   http.MethodGet,
		url:      c.instanceURL(entry, id, ""),
		resource: entry.Name,
		id:       id,
	}, &full)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}

// Update writes payload to the resource with the same id and returns the
// stored resource.
func Update[T Resource](ctx context.Context, c *Client, payload T, mode UpdateMode) (T, error) {
	var out T

	entry, err := c.entryFor(payload.ResourceName(), CapUpdate)
	if err != nil {
		return out, err
	}

	id := payload.ResourceID()
	if id == "" {
		return out, fmt.Errorf("update %s: %s: %w: %w", entry.Name, entry.IDField, ErrInvalidArgument, ErrMissingField)
	}

	method := http.MethodPatch
	if mode == UpdateFull {
		method = http.MethodPut
		if err := validate(payload); err != nil {
			return out, fmt.Errorf("update %s: %w: %w", entry.Name, ErrInvalidArgument, err)
		}
	}

	err = c.doJSON(ctx, exchange{
		method:   method,
		url:      c.instanceURL(entry, id, ""),
		body:     payload,
		resource: entry.Name,
		id:       id,
	}, &out)

	return out, err
}

// Disable marks the object identified by id as inactive.
func Disable[T Resource](ctx context.Context, c *Client, id string) (T, error) {
	var out T

	entry, err := c.entryFor(nameOf[T](), CapDisable)
	if err != nil {
		return out, err
	}

	err = c.doJSON(ctx, exchange{
		method:   http.MethodPatch,
		url:      c.instanceURL(entry, id, ""),
		body:     map[string]State{"state": StateInactive},
		resource: entry.Name,
		id:       id,
	}, &out)

	return out, err
}

// addMessageRequest is the body of an addMessage call.
type addMessageRequest struct {
	Message Message `json:"message"`
}

// addMessageResponse wraps the updated parent resource.
type addMessageResponse struct {
	Resource json.RawMessage `json:"resource"`
}

// AddMessage attaches msg to the resource identified by id and returns the
// updated resource. A message without id gets a random one.
func AddMessage[T Resource](ctx context.Context, c *Client, id string, msg Message) (T, error) {
	var out T
	err := c.addMessage(ctx, nameOf[T](), id, msg, &out)
	return out, err
}

// AddMessageByName is [AddMessage] for a resource type known only by name.
func (c *Client) AddMessageByName(ctx context.Context, name, id string, msg Message) (Resource, error) {
	entry, err := c.registry.LookupByName(name)
	if err != nil {
		return nil, err
	}
	if entry.New == nil {
		return nil, fmt.Errorf("%s has no model: %w", name, ErrCapability)
	}

	out := entry.New()
	if err := c.addMessage(ctx, name, id, msg, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) addMessage(ctx context.Context, name, id string, msg Message, out any) error {
	entry, err := c.entryFor(name, CapMessage)
	if err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	var env addMessageResponse
	err = c.doJSON(ctx, exchange{
		method:   http.MethodPost,
		url:      c.instanceURL(entry, id, "/addMessage"),
		body:     addMessageRequest{Message: msg},
		resource: entry.Name,
		id:       id,
	}, &env)
	if err != nil {
		return err
	}

	if len(env.Resource) == 0 {
		return fmt.Errorf("add message to %s %q: response without resource", entry.Name, id)
	}
	if err := json.Unmarshal(env.Resource, out); err != nil {
		return fmt.Errorf("decode %s: %w", entry.Name, err)
	}
	return nil
}
