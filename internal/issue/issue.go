// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	BakefileNotFoundId Id = iota + 1
	BakefileParseErrorId
	BaseNotResolvableId
	EngineNotFoundId
	StagingFailedId
	InstallFailedId
	ConfigLoadFailedId
	ServeStartFailedId
	ImageNotFoundId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	bakefileNotFoundIssue = &Issue{
		id: BakefileNotFoundId,
		mdMsg: `
# No bakefile found!

We searched for a bakefile.cue but couldn't find one in the build context.

## Things you can try:
- Create a bakefile in your project directory:
~~~
$ bakery init
~~~

- Or point bakery at an existing recipe:
~~~
$ bakery build --file path/to/bakefile.cue
~~~

## Example bakefile structure:
~~~cue
base:    "python:3.11-slim-bookworm"
workdir: "/opt/app"

stage: exclude: [".venv/", "*.pyc", "dist/"]

install: ["pip install ."]

entry: ["python", "-c", "import greet; print(greet.hello())"]
~~~`,
	}

	bakefileParseErrorIssue = &Issue{
		id: BakefileParseErrorId,
		mdMsg: `
# Failed to parse bakefile!

Your bakefile contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names
- A base reference without a pinned tag or digest
- A relative workdir (it must be an absolute path)
- An install command the shell cannot parse

## Things you can try:
- Check the error message above for the specific field
- Validate your CUE syntax using the cue command-line tool
- Pin the base image to a specific tag:
~~~cue
base: "python:3.11-slim-bookworm"  // not "python" or "python:latest"
~~~`,
	}

	baseNotResolvableIssue = &Issue{
		id: BaseNotResolvableId,
		mdMsg: `
# Base environment not found!

The pinned base reference in your bakefile could not be resolved against
its upstream registry.

## Common causes:
- A typo in the image name or tag
- A tag that was never published for this image
- A private registry that needs authentication
- No network connectivity to the registry

## Things you can try:
- Check the reference against the registry's published tags
- Pull the image manually to see the engine's full diagnostics:
~~~
$ docker pull python:3.11-slim-bookworm
~~~

- Log in if the registry is private:
~~~
$ docker login registry.example.com
~~~`,
	}

	engineNotFoundIssue = &Issue{
		id: EngineNotFoundId,
		mdMsg: `
# Container engine not found!

Bakery needs a container engine to resolve base environments and build
images, but neither docker nor podman is available.

## Supported container engines:
- **Docker**
- **Podman** (rootless builds work out of the box)

## Things you can try:
- Install Podman:
  - Linux: ` + "`sudo apt install podman`" + ` or ` + "`sudo dnf install podman`" + `
  - macOS: ` + "`brew install podman`" + `
  - Windows: Download from https://podman.io

- Install Docker:
  - https://docs.docker.com/get-docker/

- Configure your preferred engine in ~/.config/bakery/config.cue:
~~~cue
engine: "podman"  // or "docker"
~~~`,
	}

	stagingFailedIssue = &Issue{
		id: StagingFailedId,
		mdMsg: `
# Source staging failed!

The build context could not be copied into the staging directory.

## Common causes:
- A file in the context is unreadable (permissions)
- The staging policy excludes every file in the context
- The context directory does not exist

## Things you can try:
- Check the path named in the error above
- Review the stage.exclude patterns in your bakefile:
~~~cue
stage: exclude: [".venv/", "*.pyc"]  // gitignore syntax
~~~

- Make sure the context contains the files you expect to ship`,
	}

	installFailedIssue = &Issue{
		id: InstallFailedId,
		mdMsg: `
# Install procedure failed!

One of the install commands in your bakefile exited non-zero inside the
build. The command's own output is shown above, untouched.

## Things you can try:
- Read the install procedure's output for the real cause
- Run the failing command manually inside the base image:
~~~
$ docker run --rm -it python:3.11-slim-bookworm bash
~~~

- Check that the staged source tree contains everything the install
  procedure needs (a missing setup.py is a staging policy problem)
- Rebuild without the layer cache if a stale layer is suspect:
~~~
$ bakery build --no-cache
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the bakery configuration file.

## Configuration file locations:
- Linux: ~/.config/bakery/config.cue
- macOS: ~/Library/Application Support/bakery/config.cue
- Windows: %APPDATA%\bakery\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ bakery config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults

## Example configuration:
~~~cue
engine:    "podman"
cache_dir: "/home/user/.cache/bakery"
~~~`,
	}

	serveStartFailedIssue = &Issue{
		id: ServeStartFailedId,
		mdMsg: `
# Build server failed to start!

The SSH build endpoint could not bind its listen address.

## Common causes:
- The port is already in use by another process
- The address requires elevated permissions (ports below 1024)
- The host key path is unreadable

## Things you can try:
- Pick a different port:
~~~
$ bakery serve --addr 127.0.0.1:2222
~~~

- Check what is holding the port:
~~~
$ ss -tlnp | grep 2222
~~~`,
	}

	imageNotFoundIssue = &Issue{
		id: ImageNotFoundId,
		mdMsg: `
# Image not found!

The image tag you asked for is not present in the engine's local store.

## Things you can try:
- Build it first:
~~~
$ bakery build
~~~

- List what the engine has:
~~~
$ docker images "bakery/*"
~~~

- Check the tag for typos; bakery derives tags from the context digest,
  so a changed source tree means a changed tag`,
	}

	issues = map[Id]*Issue{
		bakefileNotFoundIssue.Id():   bakefileNotFoundIssue,
		bakefileParseErrorIssue.Id(): bakefileParseErrorIssue,
		baseNotResolvableIssue.Id():  baseNotResolvableIssue,
		engineNotFoundIssue.Id():     engineNotFoundIssue,
		stagingFailedIssue.Id():      stagingFailedIssue,
		installFailedIssue.Id():      installFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		serveStartFailedIssue.Id():   serveStartFailedIssue,
		imageNotFoundIssue.Id():      imageNotFoundIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
