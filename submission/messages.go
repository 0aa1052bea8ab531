package submission

// User-facing response messages.
const (
	MsgSignInRequired   = "You must be signed in."
	MsgGitHubAuth       = "GitHub authorization required. Please sign out and sign in again to grant repository permissions."
	MsgInvalidForm      = "Invalid form submission."
	MsgSelectTemplate   = "Select a template."
	MsgTemplateNotFound = "Template not found."
	MsgProjectName      = "Provide a project name."
	MsgUploadBrief      = "Upload a brief."
	MsgUploadLightDocs  = "Upload PRD and Architecture documents."
	MsgPrepareDocuments = "Unable to prepare documents."
	MsgQueued           = "Repository orchestration queued successfully."
	MsgFailed           = "Failed to orchestrate repository."
)
