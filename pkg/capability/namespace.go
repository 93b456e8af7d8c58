// SPDX-License-Identifier: MPL-2.0

package capability

// Namespaces.
const (
	NamespaceIdentity             = "osgi.identity"
	NamespaceContent              = "osgi.content"
	NamespaceBundle               = "osgi.wiring.bundle"
	NamespaceHost                 = "osgi.wiring.host"
	NamespacePackage              = "osgi.wiring.package"
	NamespaceService              = "osgi.service"
	NamespaceExecutionEnvironment = "osgi.ee"
)

// Attribute names.
const (
	AttrType               = "type"
	AttrVersion            = "version"
	AttrURL                = "url"
	AttrSize               = "size"
	AttrMIME               = "mime"
	AttrBundleSymbolicName = "bundle-symbolic-name"
	AttrBundleVersion      = "bundle-version"
	AttrObjectClass        = "objectClass"
)

// Directive names.
const (
	DirectiveFilter    = "filter"
	DirectiveSingleton = "singleton"
	DirectiveEffective = "effective"
)

// Well-known attribute and directive values.
const (
	TypeBundle      = "osgi.bundle"
	TypeFragment    = "osgi.fragment"
	EffectiveActive = "active"
	MIMEBundle      = "application/vnd.osgi.bundle"
)
