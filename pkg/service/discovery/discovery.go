// Kodi Mirror
// Copyright (c) 2026 The Kodi Mirror Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Kodi Mirror.
//
// Kodi Mirror is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kodi Mirror is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Kodi Mirror.  If not, see <http://www.gnu.org/licenses/>.

// Package discovery finds Kodi instances on the local network by browsing
// for their DNS-SD JSON-RPC over HTTP advertisement.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

// ServiceType is the DNS-SD service type Kodi advertises for JSON-RPC over
// HTTP.
const ServiceType = "_xbmc-jsonrpc-h._tcp"

const DefaultTimeout = 3 * time.Second

var ErrNoInterfaces = errors.New("no network interfaces suitable for mDNS")

// virtualInterfacePrefixes lists common prefixes for virtual/container network interfaces
// that are skipped when browsing.
var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

// Host is one Kodi instance found on the network.
type Host struct {
	Name string
	URL  string
}

func getPreferredInterfaces() ([]net.Interface, error) {
	allIfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}

	return filterInterfaces(allIfaces), nil
}

// filterInterfaces keeps interfaces that are up, non-loopback,
// multicast-capable and not virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		// mDNS requires multicast
		if iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		if isVirtualInterface(iface.Name) {
			continue
		}

		preferred = append(preferred, iface)
	}

	return preferred
}

func isVirtualInterface(name string) bool {
	lowerName := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lowerName, prefix) {
			return true
		}
	}
	return false
}

// hostFromEntry builds the JSON-RPC endpoint of an advertised instance.
// IPv4 is preferred; entries with no usable address are dropped.
func hostFromEntry(entry *zeroconf.ServiceEntry) (Host, bool) {
	if entry == nil || entry.Port <= 0 {
		return Host{}, false
	}

	var addr string
	switch {
	case len(entry.AddrIPv4) > 0:
		addr = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		addr = entry.AddrIPv6[0].String()
	case entry.HostName != "":
		addr = strings.TrimSuffix(entry.HostName, ".")
	default:
		return Host{}, false
	}

	name := entry.Instance
	if name == "" {
		name = addr
	}
	return Host{
		Name: name,
		URL:  "http://" + net.JoinHostPort(addr, strconv.Itoa(entry.Port)) + "/jsonrpc",
	}, true
}

// collect drains entries until the channel closes, deduplicating by URL.
func collect(entries <-chan *zeroconf.ServiceEntry) []Host {
	seen := make(map[string]struct{})
	hosts := make([]Host, 0)
	for entry := range entries {
		host, ok := hostFromEntry(entry)
		if !ok {
			continue
		}
		if _, dup := seen[host.URL]; dup {
			continue
		}
		seen[host.URL] = struct{}{}
		log.Debug().Str("name", host.Name).Str("url", host.URL).Msg("found kodi instance")
		hosts = append(hosts, host)
	}
	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Name < hosts[j].Name
	})
	return hosts
}

// Browse listens for Kodi advertisements for up to timeout and returns the
// instances seen, sorted by name.
func Browse(ctx context.Context, timeout time.Duration) ([]Host, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ifaces, err := getPreferredInterfaces()
	if err != nil {
		return nil, err
	}
	if len(ifaces) == 0 {
		return nil, ErrNoInterfaces
	}

	resolver, err := zeroconf.NewResolver(zeroconf.SelectIfaces(ifaces))
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []Host, 1)
	go func() {
		done <- collect(entries)
	}()

	if err := resolver.Browse(browseCtx, ServiceType, "local.", entries); err != nil {
		// The resolver closes entries once its context ends.
		cancel()
		<-done
		return nil, fmt.Errorf("failed to browse for %s: %w", ServiceType, err)
	}

	<-browseCtx.Done()
	return <-done, nil
}
