// Package index owns the key namespaces of the store and the derivation
// of secondary-index entries from primary records.
//
// Secondary indexes store only the primary record's ID, never a copy of
// its payload, so there is exactly one writable copy of any field. The
// derivation functions are pure; callers merge their output into the same
// atomic batch as the primary write they accompany.
package index

// Primary record keys.
func UserKey(id string) string    { return "user/" + id }
func ProjectKey(id string) string { return "project/" + id }
func ProjectMemberKey(projectID, userID string) string {
	return "project_member/" + projectID + "/" + userID
}
func InvitationKey(id string) string        { return "project_invitation/" + id }
func ActiveTimerKey(id string) string       { return "active_timer/" + id }
func TimeEntryKey(id string) string         { return "time/" + id }
func BudgetTransactionKey(id string) string { return "budget_transaction/" + id }
func PayPeriodKey(userID, id string) string { return "pay_period/" + userID + "/" + id }
func EarningsKey(id string) string          { return "earnings/" + id }
func ProfitShareKey(id string) string       { return "profit_share/" + id }
func UserSummaryKey(userID, periodStart, id string) string {
	return "user_summary/" + userID + "/" + periodStart + "/" + id
}
func ProjectSummaryKey(projectID, periodStart, id string) string {
	return "project_summary/" + projectID + "/" + periodStart + "/" + id
}
func AuthTokenKey(userID, token string) string { return "auth/" + userID + "/" + token }

// Secondary index keys (pointer-only values).
func UserEmailKey(email string) string       { return "user_email/" + email }
func ActiveTimerUserKey(userID string) string { return "active_timer_user/" + userID }
func ActiveTimerProjectKey(projectID, timerID string) string {
	return "active_timer_project/" + projectID + "/" + timerID
}
func TimeUserKey(userID, date, entryID string) string {
	return "time_user/" + userID + "/" + date + "/" + entryID
}
func TimeProjectKey(projectID, date, entryID string) string {
	return "time_project/" + projectID + "/" + date + "/" + entryID
}
func BudgetTransactionProjectKey(projectID, txID string) string {
	return "budget_transaction_project/" + projectID + "/" + txID
}
func PayPeriodUserKey(userID, startDate, periodID string) string {
	return "pay_period_user/" + userID + "/" + startDate + "/" + periodID
}
func EarningsUserKey(userID, payPeriodID, earningsID string) string {
	return "earnings_user/" + userID + "/" + payPeriodID + "/" + earningsID
}
func EarningsProjectKey(projectID, payPeriodID, earningsID string) string {
	return "earnings_project/" + projectID + "/" + payPeriodID + "/" + earningsID
}
func ProfitShareProjectKey(projectID, shareID string) string {
	return "profit_share_project/" + projectID + "/" + shareID
}
func InvitationProjectKey(projectID, inviteID string) string {
	return "project_invitation_project/" + projectID + "/" + inviteID
}
func InvitationUserKey(inviteeID, inviteID string) string {
	return "project_invitation_user/" + inviteeID + "/" + inviteID
}

// Scan prefixes.
func ProjectMemberPrefix(projectID string) string { return "project_member/" + projectID + "/" }
func ActiveTimerProjectPrefix(projectID string) string {
	return "active_timer_project/" + projectID + "/"
}
func TimeUserPrefix(userID string) string       { return "time_user/" + userID + "/" }
func TimeProjectPrefix(projectID string) string { return "time_project/" + projectID + "/" }
func BudgetTransactionProjectPrefix(projectID string) string {
	return "budget_transaction_project/" + projectID + "/"
}
func PayPeriodPrefix(userID string) string { return "pay_period/" + userID + "/" }
func PayPeriodUserPrefix(userID, startDate string) string {
	return "pay_period_user/" + userID + "/" + startDate + "/"
}
func EarningsUserPrefix(userID string) string { return "earnings_user/" + userID + "/" }
func EarningsUserPeriodPrefix(userID, payPeriodID string) string {
	return "earnings_user/" + userID + "/" + payPeriodID + "/"
}
func EarningsProjectPrefix(projectID string) string { return "earnings_project/" + projectID + "/" }
func ProfitShareProjectPrefix(projectID string) string {
	return "profit_share_project/" + projectID + "/"
}
func UserSummaryPrefix(userID string) string { return "user_summary/" + userID + "/" }
func UserSummaryPeriodPrefix(userID, periodStart string) string {
	return "user_summary/" + userID + "/" + periodStart + "/"
}
func ProjectSummaryPrefix(projectID string) string { return "project_summary/" + projectID + "/" }
func ProjectSummaryPeriodPrefix(projectID, periodStart string) string {
	return "project_summary/" + projectID + "/" + periodStart + "/"
}
func InvitationProjectPrefix(projectID string) string {
	return "project_invitation_project/" + projectID + "/"
}
func InvitationUserPrefix(inviteeID string) string {
	return "project_invitation_user/" + inviteeID + "/"
}
func AuthTokenPrefix(userID string) string { return "auth/" + userID + "/" }
