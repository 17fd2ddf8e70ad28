package namedsem

// MaxNameLength is PSEMNAMLEN, the longest name sem_open accepts on darwin,
// counting the leading "/".
const MaxNameLength = 31
