package index

var (
	bDocs         = []byte("docs")         // document key -> compiled document json
	bFingerprints = []byte("fingerprints") // pathname -> render hash of the last export
	bBuilds       = []byte("builds")       // "last" -> BuildRecord json
)

var keyLastBuild = []byte("last")
