package core

// CategoryCount represents member headcount and owed total per category.
type CategoryCount struct {
	Name    string
	Members int
	Owed    Money
}

// Overview is a compact summary of the whole membership base.
type Overview struct {
	TotalMembers  int
	ActiveMembers int
	// OutstandingTotal is the owed sum across active members.
	OutstandingTotal Money
	ByCategory       []CategoryCount
}
