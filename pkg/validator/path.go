package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// identifierSegment, instanceSegment, and templateSegment each match one
// kind of TR-181 path component: an identifier starting with an
// uppercase letter, a bare integer instance index (ValidatePath further
// requires it to be positive), or (only when templates are allowed) a
// {i}-style placeholder.
var identifierSegment = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
var instanceSegment = regexp.MustCompile(`^[0-9]+$`)
var templateSegment = regexp.MustCompile(`^\{[A-Za-z][A-Za-z0-9]*\}$`)

// ValidatePath checks TR-181 path syntax: must begin "Device.", contain
// no empty segments, allow a trailing dot only on object paths, permit
// bare positive-integer instance indices between segments, and permit
// "{i}"-style template placeholders only when allowTemplates is true
// (operator requirement documents).
func ValidatePath(path string, allowTemplates bool) error {
	if !strings.HasPrefix(path, "Device.") {
		return fmt.Errorf("path %q must start with %q", path, "Device.")
	}

	isObject := strings.HasSuffix(path, ".")
	body := strings.TrimPrefix(path, "Device.")
	body = strings.TrimSuffix(body, ".")
	if body == "" {
		if isObject {
			return nil // "Device." itself: the root object
		}
		return fmt.Errorf("path %q has no segments after Device", path)
	}

	segments := strings.Split(body, ".")
	for _, seg := range segments {
		if seg == "" {
			return fmt.Errorf("path %q contains an empty segment", path)
		}
		switch {
		case identifierSegment.MatchString(seg):
		case instanceSegment.MatchString(seg):
			if n, err := strconv.Atoi(seg); err != nil || n < 1 {
				return fmt.Errorf("path %q: instance index %q is not a positive integer", path, seg)
			}
		case allowTemplates && templateSegment.MatchString(seg):
		case templateSegment.MatchString(seg) && !allowTemplates:
			return fmt.Errorf("path %q: template placeholder %q only allowed in requirement documents", path, seg)
		default:
			return fmt.Errorf("path %q: invalid segment %q", path, seg)
		}
	}

	return nil
}

// IsObjectPath reports whether path denotes an object container (trailing
// dot) rather than a leaf parameter.
func IsObjectPath(path string) bool {
	return strings.HasSuffix(path, ".")
}

// ParentPath returns the path's immediate parent object path, or "" if
// path is the root "Device.".
func ParentPath(path string) string {
	trimmed := strings.TrimSuffix(path, ".")
	idx := strings.LastIndex(trimmed, ".")
	if idx < 0 {
		return ""
	}
	return trimmed[:idx+1]
}

// StandardTopLevelObjects lists the top-level TR-181 object names
// recognized as the standard namespace, seeded with the well-known
// TR-181 objects; callers may extend it via IsCustomPath's extra
// argument.
var StandardTopLevelObjects = map[string]bool{
	"DeviceInfo": true, "DeviceSummary": true, "ManagementServer": true,
	"Time": true, "UserInterface": true, "InterfaceStack": true,
	"GatewayInfo": true, "Firewall": true, "NAT": true, "DHCPv4": true,
	"DHCPv6": true, "DNS": true, "Ethernet": true, "PPP": true, "IP": true,
	"Routing": true, "Bridging": true, "Hosts": true, "Users": true,
	"WiFi": true, "USBHosts": true, "UPnP": true, "DSL": true, "ATM": true,
	"PTM": true, "Optical": true, "Cellular": true, "Services": true,
	"SmartCardReaders": true, "SoftwareModules": true, "SelfTestDiagnostics": true,
}

// vendorExtensionSegment matches the TR-069/TR-106 vendor-extension naming
// convention: a top-level segment prefixed "X_" (e.g. X_ACME_COM_Feature).
var vendorExtensionSegment = regexp.MustCompile(`^X_[A-Za-z0-9_]+$`)

// IsCustomPath reports whether path is a vendor extension: either its
// top-level segment uses the "X_..." TR-069 vendor-extension convention,
// or it does not match any name in the standard top-level object set.
// extra, if non-nil, augments StandardTopLevelObjects for this check.
func IsCustomPath(path string, extra map[string]bool) bool {
	body := strings.TrimPrefix(path, "Device.")
	if body == path || body == "" {
		return false // not even a Device.* path; leave that failure to ValidatePath
	}
	top := strings.SplitN(body, ".", 2)[0]

	if vendorExtensionSegment.MatchString(top) {
		return true
	}
	if StandardTopLevelObjects[top] {
		return false
	}
	if extra != nil && extra[top] {
		return false
	}
	return true
}
