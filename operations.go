package fsbridge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// getPersonsConcurrency bounds the concurrent fetches made by GetPersons.
const getPersonsConcurrency = 4

// GetCurrentUser fetches the user the access token belongs to.
func (c *Client) GetCurrentUser(ctx context.Context) *Promise[*User] {
	return mapPromise(c.Get(ctx, "/platform/users/current", ResourceRaw), func(d *Decorated) (*User, error) {
		user, ok := Chain(Path("users"), Index(0))(d.Raw())
		if !ok {
			return nil, fmt.Errorf("current user response has no users")
		}
		return &User{Decorated: d.Wrap(ResourceUser, user)}, nil
	})
}

// GetPerson fetches a tree person by id.
func (c *Client) GetPerson(ctx context.Context, pid string) *Promise[*Person] {
	if pid == "" {
		return rejected[*Person](fmt.Errorf("%w: person id is required", ErrInvalidConfig))
	}
	endpoint := "/platform/tree/persons/" + url.PathEscape(pid)
	return mapPromise(c.Get(ctx, endpoint, ResourceRaw), func(d *Decorated) (*Person, error) {
		return findPerson(d, pid)
	})
}

// GetPersons fetches several persons, at most four at a time. Results are in
// the order of pids. The first failure cancels the remaining fetches.
func (c *Client) GetPersons(ctx context.Context, pids ...string) ([]*Person, error) {
	persons := make([]*Person, len(pids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(getPersonsConcurrency)

	for i, pid := range pids {
		i, pid := i, pid
		g.Go(func() error {
			p, err := c.GetPerson(gctx, pid).Await(gctx)
			if err != nil {
				return fmt.Errorf("getting person %s: %w", pid, err)
			}
			persons[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return persons, nil
}

// GetAncestry fetches the pedigree of pid, going back the given number of
// generations. Zero leaves the server default (4).
func (c *Client) GetAncestry(ctx context.Context, pid string, generations int) *Promise[*Ancestry] {
	if pid == "" {
		return rejected[*Ancestry](fmt.Errorf("%w: person id is required", ErrInvalidConfig))
	}
	params := url.Values{}
	params.Set("person", pid)
	if generations > 0 {
		params.Set("generations", strconv.Itoa(generations))
	}
	endpoint := "/platform/tree/ancestry?" + params.Encode()
	return mapPromise(c.Get(ctx, endpoint, ResourceAncestry), func(d *Decorated) (*Ancestry, error) {
		return &Ancestry{Decorated: d}, nil
	})
}

// GetPersonWithRelationships fetches pid together with its parents, spouses
// and children.
func (c *Client) GetPersonWithRelationships(ctx context.Context, pid string) *Promise[*PersonWithRelationships] {
	if pid == "" {
		return rejected[*PersonWithRelationships](fmt.Errorf("%w: person id is required", ErrInvalidConfig))
	}
	params := url.Values{}
	params.Set("person", pid)
	endpoint := "/platform/tree/persons-with-relationships?" + params.Encode()
	return mapPromise(c.Get(ctx, endpoint, ResourcePersonWithRelationships), func(d *Decorated) (*PersonWithRelationships, error) {
		return &PersonWithRelationships{Decorated: d, personID: pid}, nil
	})
}

// findPerson picks pid out of a persons response. A merged person comes back
// under its surviving id, so the first person is used when pid is absent.
func findPerson(d *Decorated, pid string) (*Person, error) {
	person, ok := First(
		Chain(Path("persons"), FindByField("id", pid)),
		Chain(Path("persons"), Index(0)),
	)(d.Raw())
	if !ok {
		return nil, fmt.Errorf("person response has no persons")
	}
	return &Person{Decorated: d.Wrap(ResourcePerson, person)}, nil
}
