package fsbridge

import "github.com/Jeffail/gabs/v2"

// Rule navigates from one JSON node to another. Rules never fail: a node that
// is missing or of the wrong shape yields false.
type Rule func(c *gabs.Container) (*gabs.Container, bool)

// Path follows object keys. With no keys it selects the node itself.
func Path(keys ...string) Rule {
	return func(c *gabs.Container) (*gabs.Container, bool) {
		if c == nil {
			return nil, false
		}
		if len(keys) == 0 {
			return c, c.Data() != nil
		}
		found := c.Search(keys...)
		if found == nil || found.Data() == nil {
			return nil, false
		}
		return found, true
	}
}

// Index selects element i of an array.
func Index(i int) Rule {
	return func(c *gabs.Container) (*gabs.Container, bool) {
		arr, ok := c.Data().([]interface{})
		if !ok || i < 0 || i >= len(arr) || arr[i] == nil {
			return nil, false
		}
		return gabs.Wrap(arr[i]), true
	}
}

// FindByField selects the first element of an array whose field equals
// value. value is compared against the decoded JSON, so use string, bool or
// float64.
func FindByField(field string, value any) Rule {
	return func(c *gabs.Container) (*gabs.Container, bool) {
		arr, ok := c.Data().([]interface{})
		if !ok {
			return nil, false
		}
		for _, elem := range arr {
			obj, ok := elem.(map[string]interface{})
			if !ok {
				continue
			}
			if v, ok := obj[field]; ok && v == value {
				return gabs.Wrap(obj), true
			}
		}
		return nil, false
	}
}

// Chain applies rules in sequence, each to the result of the previous one.
func Chain(rules ...Rule) Rule {
	return func(c *gabs.Container) (*gabs.Container, bool) {
		cur := c
		for _, rule := range rules {
			next, ok := rule(cur)
			if !ok {
				return nil, false
			}
			cur = next
		}
		return cur, cur != nil
	}
}

// First returns the result of the first rule that finds something.
func First(rules ...Rule) Rule {
	return func(c *gabs.Container) (*gabs.Container, bool) {
		for _, rule := range rules {
			if found, ok := rule(c); ok {
				return found, true
			}
		}
		return nil, false
	}
}

// Each applies rule to every element of an array and collects the results
// that were found. An empty array yields an empty list.
func Each(rule Rule) Rule {
	return func(c *gabs.Container) (*gabs.Container, bool) {
		arr, ok := c.Data().([]interface{})
		if !ok {
			return nil, false
		}
		out := make([]interface{}, 0, len(arr))
		for _, elem := range arr {
			if found, ok := rule(gabs.Wrap(elem)); ok {
				out = append(out, found.Data())
			}
		}
		return gabs.Wrap(out), true
	}
}

// Value turns a rule into an accessor returning the selected node's data.
func Value(rule Rule) Accessor {
	return func(d *Decorated) (any, bool) {
		found, ok := rule(d.Raw())
		if !ok || found.Data() == nil {
			return nil, false
		}
		return found.Data(), true
	}
}

// ListOf turns a rule selecting an array into an accessor returning the
// elements decorated as t.
func ListOf(rule Rule, t ResourceType) Accessor {
	return func(d *Decorated) (any, bool) {
		found, ok := rule(d.Raw())
		if !ok {
			return nil, false
		}
		arr, ok := found.Data().([]interface{})
		if !ok {
			return nil, false
		}
		out := make([]*Decorated, 0, len(arr))
		for _, elem := range arr {
			out = append(out, d.Wrap(t, gabs.Wrap(elem)))
		}
		return out, true
	}
}
