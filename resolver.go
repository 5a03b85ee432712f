package recce

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"

	"go.uber.org/zap"
)

// Family is the address family of a resolved target.
type Family int

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

func (f Family) String() string {
	if f == FamilyIPv6 {
		return "ipv6"
	}
	return "ipv4"
}

// AddressTemplate is a resolved, port-less target address. It is a value:
// probes derive per-attempt addresses with WithPort and never modify it.
type AddressTemplate struct {
	addr   netip.Addr
	family Family
}

// NewAddressTemplate builds a template from an already-resolved address.
func NewAddressTemplate(addr netip.Addr) AddressTemplate {
	addr = addr.Unmap()
	family := FamilyIPv4
	if addr.Is6() {
		family = FamilyIPv6
	}
	return AddressTemplate{addr: addr, family: family}
}

// Addr returns the resolved address.
func (t AddressTemplate) Addr() netip.Addr { return t.addr }

// Family returns the address family.
func (t AddressTemplate) Family() Family { return t.family }

// Network returns the dial network matching the family.
func (t AddressTemplate) Network() string {
	if t.family == FamilyIPv6 {
		return "tcp6"
	}
	return "tcp4"
}

// WithPort returns a private socket address for one connection attempt.
func (t AddressTemplate) WithPort(port uint16) netip.AddrPort {
	return netip.AddrPortFrom(t.addr, port)
}

// String returns the canonical printable address.
func (t AddressTemplate) String() string {
	return t.addr.String()
}

// IsValid reports whether the template holds a resolved address.
func (t AddressTemplate) IsValid() bool {
	return t.addr.IsValid()
}

// LookupFunc resolves host to candidate addresses in preference order.
type LookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

var errNoAddresses = errors.New("no usable addresses")

// Resolver turns host names and IP literals into address templates.
type Resolver struct {
	lookup LookupFunc
	cache  *ResolveCache
	logger *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLookupFunc replaces the system resolver.
func WithLookupFunc(fn LookupFunc) ResolverOption {
	return func(r *Resolver) { r.lookup = fn }
}

// WithResolveCache enables caching of successful resolutions.
func WithResolveCache(cache *ResolveCache) ResolverOption {
	return func(r *Resolver) { r.cache = cache }
}

// NewResolver creates a resolver backed by net.DefaultResolver.
func NewResolver(logger *zap.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lookup: net.DefaultResolver.LookupNetIP,
		logger: logger.With(zap.String("component", "resolver")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the first usable address for host. Failures are returned as
// resolution errors carrying the host name and are never cached.
func (r *Resolver) Resolve(ctx context.Context, host string) (AddressTemplate, error) {
	key := strings.ToLower(host)
	if r.cache != nil {
		if tmpl, ok := r.cache.Get(key); ok {
			r.logger.Debug("Using cached resolution", zap.String("host", host), zap.String("address", tmpl.String()))
			return tmpl, nil
		}
	}

	if host == "" {
		return AddressTemplate{}, newResolutionError(host, errors.New("empty host"))
	}

	addrs, err := r.lookup(ctx, "ip", host)
	if err != nil {
		r.logger.Debug("Lookup failed", zap.String("host", host), zap.Error(err))
		return AddressTemplate{}, newResolutionError(host, err)
	}

	for _, addr := range addrs {
		if !addr.IsValid() {
			continue
		}
		tmpl := NewAddressTemplate(addr)
		if r.cache != nil {
			r.cache.Set(key, tmpl)
		}
		r.logger.Debug("Resolved target",
			zap.String("host", host),
			zap.String("address", tmpl.String()),
			zap.Stringer("family", tmpl.Family()),
		)
		return tmpl, nil
	}
	return AddressTemplate{}, newResolutionError(host, errNoAddresses)
}
