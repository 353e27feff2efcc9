package version

const Version = "0.3.0"

// ProtocolVersion is returned when the client asks for a version we do not know.
const ProtocolVersion = "2025-06-18"

var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}
