package mail

type StaleDigestEntry struct {
	LeadID      string
	Name        string
	Stage       string
	DaysInStage int
}

type StaleDigest struct {
	Owner   string
	Entries []StaleDigestEntry
}
