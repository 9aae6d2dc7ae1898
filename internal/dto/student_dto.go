package dto

// ProgressResponse reports a student's XP state.
type ProgressResponse struct {
	StudentID     uint `json:"student_id"`
	Level         int  `json:"level"`
	TotalXP       int  `json:"total_xp"`
	CurrentXP     int  `json:"current_xp"`
	XPPerLevel    int  `json:"xp_per_level"`
	XPToNextLevel int  `json:"xp_to_next_level"`
}

// SubmissionCounts is the number of submissions per lifecycle status.
type SubmissionCounts struct {
	Draft     int64 `json:"draft"`
	Submitted int64 `json:"submitted"`
	Graded    int64 `json:"graded"`
}

// StudentDashboardResponse aggregates grading progress for a student.
type StudentDashboardResponse struct {
	Progress     ProgressResponse      `json:"progress"`
	Submissions  SubmissionCounts      `json:"submissions"`
	AverageScore float64               `json:"average_score"`
	RecentGrades []RecentGradeResponse `json:"recent_grades"`
}
