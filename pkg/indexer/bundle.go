// SPDX-License-Identifier: MPL-2.0

package indexer

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/invowk/repoindex/pkg/capability"
	"github.com/invowk/repoindex/pkg/filter"
	"github.com/invowk/repoindex/pkg/header"
	"github.com/invowk/repoindex/pkg/manifest"
	"github.com/invowk/repoindex/pkg/resource"
	"github.com/invowk/repoindex/pkg/version"
)

// Rule names reported in RuleError.
const (
	RuleIdentity             = "identity"
	RuleContent              = "content"
	RuleBundleAndHost        = "bundle-and-host"
	RuleExports              = "export-package"
	RuleImports              = "import-package"
	RuleRequireBundle        = "require-bundle"
	RuleFragmentHost         = "fragment-host"
	RuleExportService        = "export-service"
	RuleImportService        = "import-service"
	RuleExecutionEnvironment = "execution-environment"
	RuleProvideCapability    = "provide-capability"
	RuleRequireCapability    = "require-capability"
)

const (
	directiveFragmentAttachment = "fragment-attachment"
	fragmentAttachmentNever     = "never"
	attrSpecificationVersion    = "specification-version"
)

var breeVersionSegment = regexp.MustCompile(`-[0-9]+\.[0-9]+`)

type (
	// BundleAnalyzer extracts the standard capabilities and requirements from
	// a bundle manifest. It is stateless and safe for concurrent use.
	BundleAnalyzer struct{}

	// bundle is the per-call state shared by the rules of one analysis.
	bundle struct {
		res      resource.Resource
		gen      GenerationContext
		headers  manifest.Headers
		name     header.Clause
		version  version.Version
		fragment bool
		out      *Result
	}

	bundleRule struct {
		name  string
		apply func(*bundle) error
	}
)

// bundleRules run in this order; output ordering follows it.
var bundleRules = []bundleRule{
	{RuleIdentity, (*bundle).identity},
	{RuleContent, (*bundle).content},
	{RuleBundleAndHost, (*bundle).bundleAndHost},
	{RuleExports, (*bundle).exports},
	{RuleImports, (*bundle).imports},
	{RuleRequireBundle, (*bundle).requireBundles},
	{RuleFragmentHost, (*bundle).fragmentHost},
	{RuleExportService, (*bundle).exportServices},
	{RuleImportService, (*bundle).importServices},
	{RuleExecutionEnvironment, (*bundle).executionEnvironments},
	{RuleProvideCapability, (*bundle).provideCapabilities},
	{RuleRequireCapability, (*bundle).requireCapabilities},
}

// NewBundleAnalyzer returns the default analyzer.
func NewBundleAnalyzer() *BundleAnalyzer { return &BundleAnalyzer{} }

// Name implements NamedAnalyzer.
func (*BundleAnalyzer) Name() string { return "bundle" }

// Analyze implements Analyzer. Any rule failure aborts the analysis and is
// returned as a *RuleError. Nothing is appended to out unless every rule succeeds.
func (*BundleAnalyzer) Analyze(ctx context.Context, res resource.Resource, gen GenerationContext, out *Result) error {
	b := &bundle{res: res, gen: gen, out: &Result{}}
	if err := b.load(); err != nil {
		return &RuleError{Rule: RuleIdentity, Err: err}
	}
	for _, rule := range bundleRules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rule.apply(b); err != nil {
			return &RuleError{Rule: rule.name, Err: err}
		}
	}
	out.Merge(*b.out)
	return nil
}

// load establishes the symbolic name and version every rule depends on.
func (b *bundle) load() error {
	headers, err := b.res.Manifest()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotABundle, err)
	}
	raw, ok := headers.Get(manifest.BundleSymbolicName)
	if !ok {
		return fmt.Errorf("%w: missing %s header", ErrNotABundle, manifest.BundleSymbolicName)
	}
	clauses, err := header.ParseHeader(raw)
	if err != nil {
		return err
	}
	if len(clauses) == 0 {
		return fmt.Errorf("%w: empty %s header", ErrNotABundle, manifest.BundleSymbolicName)
	}

	b.headers = headers
	b.name = clauses[0]
	b.version = version.Empty
	if rawVersion := strings.TrimSpace(headers.Value(manifest.BundleVersion)); rawVersion != "" {
		if b.version, err = version.Parse(rawVersion); err != nil {
			return err
		}
	}
	b.fragment = headers.Has(manifest.FragmentHost)
	return nil
}

// clauses parses the named header; an absent header yields no clauses.
func (b *bundle) clauses(name string) ([]header.Clause, error) {
	raw, ok := b.headers.Get(name)
	if !ok {
		return nil, nil
	}
	clauses, err := header.ParseHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return clauses, nil
}

func (b *bundle) identity() error {
	identityType := capability.TypeBundle
	if b.fragment {
		identityType = capability.TypeFragment
	}
	builder := capability.NewBuilder().
		SetNamespace(capability.NamespaceIdentity).
		AddAttribute(capability.NamespaceIdentity, b.name.Name).
		AddAttribute(capability.AttrType, identityType).
		AddAttribute(capability.AttrVersion, b.version)
	if s, _ := b.name.Directive(capability.DirectiveSingleton); strings.EqualFold(strings.TrimSpace(s), "true") {
		builder.AddDirective(capability.DirectiveSingleton, "true")
	}
	return b.addCapability(builder)
}

func (b *bundle) content() error {
	sum, err := Digest(b.res)
	if err != nil {
		return err
	}
	location, err := ResolveLocation(b.res, b.gen, b.name.Name, b.version.String())
	if err != nil {
		return err
	}
	builder := capability.NewBuilder().
		SetNamespace(capability.NamespaceContent).
		AddAttribute(capability.NamespaceContent, sum).
		AddAttribute(capability.AttrURL, location)
	if size := b.res.Size(); size > 0 {
		builder.AddAttribute(capability.AttrSize, size)
	}
	builder.AddAttribute(capability.AttrMIME, capability.MIMEBundle)
	return b.addCapability(builder)
}

func (b *bundle) bundleAndHost() error {
	if b.fragment {
		return nil
	}
	bundleBuilder := capability.NewBuilder().
		SetNamespace(capability.NamespaceBundle).
		AddAttribute(capability.NamespaceBundle, b.name.Name).
		AddAttribute(capability.AttrBundleVersion, b.version)
	hostBuilder := capability.NewBuilder().
		SetNamespace(capability.NamespaceHost).
		AddAttribute(capability.NamespaceHost, b.name.Name).
		AddAttribute(capability.AttrBundleVersion, b.version)

	allowFragments := true
	for _, key := range slices.Sorted(maps.Keys(b.name.Directives)) {
		value := b.name.Directives[key]
		switch {
		case strings.EqualFold(key, directiveFragmentAttachment):
			if strings.EqualFold(strings.TrimSpace(value), fragmentAttachmentNever) {
				allowFragments = false
			}
		case strings.EqualFold(key, capability.DirectiveSingleton):
		default:
			bundleBuilder.AddDirective(key, value)
			hostBuilder.AddDirective(key, value)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(b.name.Attributes)) {
		value := b.name.Attributes[key]
		if err := bundleBuilder.AddTypedAttribute(key, value); err != nil {
			return err
		}
		if err := hostBuilder.AddTypedAttribute(key, value); err != nil {
			return err
		}
	}

	if err := b.addCapability(bundleBuilder); err != nil {
		return err
	}
	if !allowFragments {
		return nil
	}
	return b.addCapability(hostBuilder)
}

func (b *bundle) exports() error {
	clauses, err := b.clauses(manifest.ExportPackage)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		raw, ok, err := versionParameter(c, capability.AttrVersion)
		if err != nil {
			return fmt.Errorf("package %s: %w", c.Name, err)
		}
		v := version.Empty
		if ok {
			if v, err = version.Parse(raw); err != nil {
				return fmt.Errorf("package %s: %w", c.Name, err)
			}
		}
		builder := capability.NewBuilder().
			SetNamespace(capability.NamespacePackage).
			AddAttribute(capability.NamespacePackage, c.Name).
			AddAttribute(capability.AttrVersion, v)
		if err := copyParameters(builder, c, capability.AttrVersion, attrSpecificationVersion); err != nil {
			return fmt.Errorf("package %s: %w", c.Name, err)
		}
		builder.
			AddAttribute(capability.AttrBundleSymbolicName, b.name.Name).
			AddAttribute(capability.AttrBundleVersion, b.version)
		if err := b.addCapability(builder); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundle) imports() error {
	clauses, err := b.clauses(manifest.ImportPackage)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		expr, err := nameFilter(capability.NamespacePackage, c.Name, c, capability.AttrVersion, nil)
		if err != nil {
			return fmt.Errorf("package %s: %w", c.Name, err)
		}
		builder := capability.NewBuilder().
			SetNamespace(capability.NamespacePackage).
			AddDirective(capability.DirectiveFilter, expr)
		if err := copyParameters(builder, c, capability.AttrVersion, attrSpecificationVersion); err != nil {
			return fmt.Errorf("package %s: %w", c.Name, err)
		}
		if err := b.addRequirement(builder); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundle) requireBundles() error {
	clauses, err := b.clauses(manifest.RequireBundle)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		expr, err := nameFilter(capability.NamespaceBundle, c.Name, c, capability.AttrBundleVersion, nil)
		if err != nil {
			return fmt.Errorf("bundle %s: %w", c.Name, err)
		}
		builder := capability.NewBuilder().
			SetNamespace(capability.NamespaceBundle).
			AddDirective(capability.DirectiveFilter, expr)
		if err := copyParameters(builder, c, capability.AttrBundleVersion); err != nil {
			return fmt.Errorf("bundle %s: %w", c.Name, err)
		}
		if err := b.addRequirement(builder); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundle) fragmentHost() error {
	if !b.fragment {
		return nil
	}
	clauses, err := b.clauses(manifest.FragmentHost)
	if err != nil {
		return err
	}
	switch len(clauses) {
	case 0:
		return fmt.Errorf("%w: empty %s header", header.ErrSyntax, manifest.FragmentHost)
	case 1:
	default:
		return fmt.Errorf("%w: found %d", ErrMultipleFragmentHosts, len(clauses))
	}

	host := clauses[0]
	anyVersion := version.AtLeast(version.Empty)
	expr, err := nameFilter(capability.NamespaceHost, host.Name, host, capability.AttrBundleVersion, &anyVersion)
	if err != nil {
		return fmt.Errorf("host %s: %w", host.Name, err)
	}
	return b.addRequirement(capability.NewBuilder().
		SetNamespace(capability.NamespaceHost).
		AddDirective(capability.DirectiveFilter, expr))
}

func (b *bundle) exportServices() error {
	clauses, err := b.clauses(manifest.ExportService)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		builder := capability.NewBuilder().
			SetNamespace(capability.NamespaceService).
			AddAttribute(capability.AttrObjectClass, c.Name)
		if err := copyParameters(builder, c); err != nil {
			return fmt.Errorf("service %s: %w", c.Name, err)
		}
		builder.AddDirective(capability.DirectiveEffective, capability.EffectiveActive)
		if err := b.addCapability(builder); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundle) importServices() error {
	clauses, err := b.clauses(manifest.ImportService)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		builder := capability.NewBuilder().
			SetNamespace(capability.NamespaceService).
			AddDirective(capability.DirectiveFilter, equalTerm(capability.AttrObjectClass, c.Name)).
			AddDirective(capability.DirectiveEffective, capability.EffectiveActive)
		if err := b.addRequirement(builder); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundle) executionEnvironments() error {
	clauses, err := b.clauses(manifest.BundleRequiredExecutionEnvironment)
	if err != nil {
		return err
	}
	if len(clauses) == 0 {
		return nil
	}

	terms := make([]string, 0, len(clauses))
	for _, c := range clauses {
		terms = append(terms, executionEnvironmentTerm(c.Name))
	}
	expr := terms[0]
	if len(terms) > 1 {
		expr = "(|" + strings.Join(terms, "") + ")"
	}
	return b.addRequirement(capability.NewBuilder().
		SetNamespace(capability.NamespaceExecutionEnvironment).
		AddDirective(capability.DirectiveFilter, expr))
}

func (b *bundle) provideCapabilities() error {
	clauses, err := b.clauses(manifest.ProvideCapability)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		builder := capability.NewBuilder().SetNamespace(c.Name)
		if err := copyParameters(builder, c); err != nil {
			return fmt.Errorf("capability %s: %w", c.Name, err)
		}
		if err := b.addCapability(builder); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundle) requireCapabilities() error {
	clauses, err := b.clauses(manifest.RequireCapability)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		builder := capability.NewBuilder().SetNamespace(c.Name)
		if err := copyParameters(builder, c); err != nil {
			return fmt.Errorf("requirement %s: %w", c.Name, err)
		}
		if err := b.addRequirement(builder); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundle) addCapability(builder *capability.Builder) error {
	c, err := builder.BuildCapability()
	if err != nil {
		return err
	}
	b.out.AddCapability(c)
	return nil
}

func (b *bundle) addRequirement(builder *capability.Builder) error {
	r, err := builder.BuildRequirement()
	if err != nil {
		return err
	}
	b.out.AddRequirement(r)
	return nil
}

// copyParameters copies the clause's attributes (converted per their type
// tag) and directives into builder in key order, skipping attribute names in
// skip.
func copyParameters(builder *capability.Builder, c header.Clause, skip ...string) error {
	for _, key := range slices.Sorted(maps.Keys(c.Attributes)) {
		name, _, _ := strings.Cut(key, ":")
		if containsFold(skip, strings.TrimSpace(name)) {
			continue
		}
		if err := builder.AddTypedAttribute(key, c.Attributes[key]); err != nil {
			return err
		}
	}
	for _, key := range slices.Sorted(maps.Keys(c.Directives)) {
		builder.AddDirective(key, c.Directives[key])
	}
	return nil
}

// versionParameter returns the raw value of the version-like attribute name,
// written either bare or with a type tag ("version:Version=2.0"). Only the
// String and Version tags are accepted, and name may appear once.
func versionParameter(c header.Clause, name string) (string, bool, error) {
	var found string
	for _, key := range slices.Sorted(maps.Keys(c.Attributes)) {
		base, tag, typed := strings.Cut(key, ":")
		if !strings.EqualFold(strings.TrimSpace(base), name) {
			continue
		}
		value := c.Attributes[key]
		if found != "" {
			return "", false, &capability.AttributeError{
				Key:    key,
				Value:  value,
				Reason: fmt.Sprintf("duplicates %q", found),
				Err:    capability.ErrInvalidAttributeValue,
			}
		}
		if tag = strings.TrimSpace(tag); typed && tag != capability.TypeString && tag != capability.TypeVersion {
			return "", false, &capability.AttributeError{
				Key:    key,
				Value:  value,
				Reason: fmt.Sprintf("%s must be typed %s or %s", name, capability.TypeString, capability.TypeVersion),
				Err:    capability.ErrInvalidAttributeType,
			}
		}
		found = key
	}
	if found == "" {
		return "", false, nil
	}
	return c.Attributes[found], true, nil
}

// nameFilter builds "(ns=name)" conjoined with the range found in the clause
// attribute rangeAttr, bare or typed. fallback is used when the attribute is absent; with
// neither, the bare equality term is returned.
func nameFilter(ns, name string, c header.Clause, rangeAttr string, fallback *version.Range) (string, error) {
	term := equalTerm(ns, name)
	r := fallback
	raw, ok, err := versionParameter(c, rangeAttr)
	if err != nil {
		return "", err
	}
	if ok {
		parsed, err := version.ParseRange(raw)
		if err != nil {
			return "", err
		}
		r = &parsed
	}
	if r == nil {
		return term, nil
	}
	return "(&" + term + r.FilterTerms(rangeAttr) + ")", nil
}

func equalTerm(attr, value string) string {
	return filter.Equal{Attr: attr, Value: value}.String()
}

// executionEnvironmentTerm turns an entry such as "JavaSE-1.8" into
// "(&(osgi.ee=JavaSE)(version=1.8))". The name drops every "-N.N" segment;
// the version is the text after the last '-' and is omitted when it does not
// parse as a version.
func executionEnvironmentTerm(entry string) string {
	name := breeVersionSegment.ReplaceAllString(entry, "")
	nameTerm := equalTerm(capability.NamespaceExecutionEnvironment, name)

	i := strings.LastIndexByte(entry, '-')
	if i < 0 {
		return nameTerm
	}
	rawVersion := entry[i+1:]
	if _, err := version.Parse(rawVersion); err != nil {
		return nameTerm
	}
	return "(&" + nameTerm + equalTerm(capability.AttrVersion, rawVersion) + ")"
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
