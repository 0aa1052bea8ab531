package orchestrator

import (
	"fmt"
	"strings"
)

// DefaultWebURL is the web host repositories are linked on.
const DefaultWebURL = "https://github.com"

// AssistantURL is where the follow-up instructions send the user.
const AssistantURL = "https://claude.ai/code/"

// Result describes a published repository.
type Result struct {
	RepoName            string
	RepoURL             string
	Instructions        string
	InstructionFilename string
	Owner               string
	CommitSHA           string
}

// Assemble formats the repository URL and follow-up instructions.
func Assemble(webURL, owner, repoName, instructionFilename string) Result {
	if webURL == "" {
		webURL = DefaultWebURL
	}
	return Result{
		RepoName:            repoName,
		RepoURL:             fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(webURL, "/"), owner, repoName),
		Instructions:        Instructions(repoName, instructionFilename),
		InstructionFilename: instructionFilename,
		Owner:               owner,
	}
}

// Description returns the repository description for a caller, or "" when
// the caller is unknown.
func Description(caller string) string {
	if caller == "" {
		return ""
	}
	return "Generated by seedrepo for " + caller
}

// Instructions returns the text telling the user how to start work on the repository.
func Instructions(repoName, instructionFilename string) string {
	return fmt.Sprintf("Visit %s.\nSelect the project %s, then type: \"Load %s into your context and develop to 100%% completion.\"",
		AssistantURL, repoName, instructionFilename)
}
