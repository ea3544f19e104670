package services

const (
	LogActionMailSearch   = "MAIL_SEARCH"
	LogActionHarvest      = "ATTACHMENT_HARVEST"
	LogActionDiscovery    = "FILE_DISCOVERY"
	LogActionLedgerDiff   = "LEDGER_DIFF"
	LogActionParse        = "SPREADSHEET_PARSE"
	LogActionLedgerAppend = "LEDGER_APPEND"
	LogActionLedgerDedup  = "LEDGER_DEDUP"
	LogActionRunSummary   = "RUN_SUMMARY"
	LogOutcomeSuccess     = "SUCCESS"
	LogOutcomeFail        = "FAIL"
)
