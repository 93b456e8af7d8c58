// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Catalog issue identifiers.
const (
	ConfigLoadFailedId Id = iota + 1
	ResourceNotFoundId
	NotABundleId
	ManifestSyntaxErrorId
	MultipleFragmentHostsId
	OutsideRootId
	InvalidAnalyzerConfigId
	ExtensionFaultId
	OutputWriteFailedId
	PermissionDeniedId
)

type (
	// Id identifies a catalog issue.
	Id int

	// MarkdownMsg is the markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a catalog entry rendered for the user when a matching error
	// reaches the command line.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the markdown with glamour using the given style ("dark",
// "light", "notty" or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the configuration that is in effect:
~~~
$ repoindex config show
~~~
- Write a fresh default file and compare it with yours:
~~~
$ repoindex config init
~~~
- Point to a specific file with ` + "`--config path/to/config.cue`",
	}

	resourceNotFoundIssue = &Issue{
		id: ResourceNotFoundId,
		mdMsg: `
# Resource not found

One of the archives given on the command line does not exist or is a directory.

## Things you can try:
- Check the path for typos
- Directories are not traversed; pass the archives themselves:
~~~
$ repoindex index bundles/*.jar
~~~`,
	}

	notABundleIssue = &Issue{
		id: NotABundleId,
		mdMsg: `
# Not a bundle

The archive has no ` + "`META-INF/MANIFEST.MF`" + ` or its manifest has no
` + "`Bundle-SymbolicName`" + ` header, so it cannot be indexed.

## Things you can try:
- Inspect the manifest:
~~~
$ unzip -p foo.jar META-INF/MANIFEST.MF
~~~
- Skip such archives instead of failing the whole run:
~~~
$ repoindex index --continue-on-error *.jar
~~~`,
	}

	manifestSyntaxErrorIssue = &Issue{
		id: ManifestSyntaxErrorId,
		mdMsg: `
# Manifest syntax error

A manifest header, version or version range is malformed.

## Common causes:
- Unterminated double quote in an attribute value
- A parameter without ` + "`=`" + `, e.g. ` + "`Import-Package: a;version`" + `
- A range whose floor is above its ceiling, e.g. ` + "`[2.0,1.0)`" + `
- A version qualifier with characters outside ` + "`A-Z a-z 0-9 _ -`",
	}

	multipleFragmentHostsIssue = &Issue{
		id: MultipleFragmentHostsId,
		mdMsg: `
# Multiple fragment hosts

A fragment may attach to exactly one host, but its ` + "`Fragment-Host`" + `
header names several.

## Things you can try:
- Keep a single clause in ` + "`Fragment-Host`" + ` and rebuild the archive`,
	}

	outsideRootIssue = &Issue{
		id: OutsideRootId,
		mdMsg: `
# Resource outside the repository root

Content URLs are made relative to the repository root, and this archive lives
outside it.

## Things you can try:
- Pass a root that contains every archive:
~~~
$ repoindex index --root-url ./repo repo/bundles/*.jar
~~~
- Omit ` + "`--root-url`" + ` to index with the current directory as root`,
	}

	invalidAnalyzerConfigIssue = &Issue{
		id: InvalidAnalyzerConfigId,
		mdMsg: `
# Invalid analyzer declaration

An entry of ` + "`analyzers`" + ` in the configuration has an invalid
filter or attribute.

## Example:
~~~cue
analyzers: [{
	name:      "team-tag"
	filter:    "(Bundle-SymbolicName=com.example.*)"
	namespace: "com.example.team"
	attributes: {
		team:          "core"
		"tier:Long":   "1"
	}
}]
~~~`,
	}

	extensionFaultIssue = &Issue{
		id: ExtensionFaultId,
		mdMsg: `
# Analyzer failed

An extension analyzer failed while strict extension mode is enabled.

## Things you can try:
- Disable ` + "`index.strict_extensions`" + ` to discard the failing analyzer's output and continue
- Run with ` + "`--verbose`" + ` to see which analyzer failed on which archive`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Failed to write the index

The repository document could not be written.

## Things you can try:
- Check that the output directory exists and is writable
- Write to standard output instead by omitting ` + "`--output`",
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

A file could not be opened due to insufficient permissions.

## Things you can try:
- Check the file permissions:
~~~
$ ls -la <file>
~~~`,
	}

	catalog = []*Issue{
		configLoadFailedIssue,
		resourceNotFoundIssue,
		notABundleIssue,
		manifestSyntaxErrorIssue,
		multipleFragmentHostsIssue,
		outsideRootIssue,
		invalidAnalyzerConfigIssue,
		extensionFaultIssue,
		outputWriteFailedIssue,
		permissionDeniedIssue,
	}
)

// Values returns every catalog issue ordered by Id.
func Values() []*Issue {
	out := slices.Clone(catalog)
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Get returns the issue with the given id, or nil.
func Get(id Id) *Issue {
	i := slices.IndexFunc(catalog, func(is *Issue) bool { return is.id == id })
	if i < 0 {
		return nil
	}
	return catalog[i]
}
