package responder

// DefaultScripts returns fresh copies of the built-in assistant scripts.
func DefaultScripts() map[Persona]Script {
	return map[Persona]Script{
		JobSeeker: {
			Title:    "Job Search Assistant",
			Greeting: "Hi! I'm your job search assistant. I can help you with finding jobs, resume tips, interview preparation, and career advice. What would you like to know?",
			Table: Table{
				{"job search", "Here are some tips for job searching:\n1. Update your resume regularly\n2. Use relevant keywords\n3. Network actively\n4. Apply to positions that match your skills\n5. Follow up on applications professionally"},
				{"resume", "For a great resume:\n• Keep it concise (1-2 pages)\n• Use action verbs\n• Quantify achievements\n• Tailor it to each job\n• Include relevant keywords\n• Proofread carefully"},
				{"interview", "Interview preparation tips:\n• Research the company thoroughly\n• Practice common questions\n• Prepare your own questions\n• Dress appropriately\n• Arrive 10-15 minutes early\n• Follow up with a thank-you email"},
				{"salary", "When negotiating salary:\n• Research market rates\n• Know your worth\n• Consider the total package\n• Be professional and confident\n• Have a backup plan"},
				{"skills", "To improve your skills:\n• Take online courses\n• Get certifications\n• Practice regularly\n• Join professional groups\n• Attend workshops and seminars"},
			},
			Fallbacks: []string{
				"I'd be happy to help you with your job search! Could you be more specific about what you need assistance with?",
				"That's a great question! For personalized advice, I recommend speaking with our career counselors or checking our resources section.",
				"I can help with job search strategies, resume tips, interview preparation, and more. What specific area interests you?",
			},
		},
		Company: {
			Title:    "HR Assistant",
			Greeting: "Hello! I'm here to help with your hiring needs. I can assist with job posting guidelines, application management, and recruitment best practices. How can I help you today?",
			Table: Table{
				{"job posting", "For effective job postings:\n• Write clear job titles\n• Include detailed responsibilities\n• Specify required skills\n• Mention company culture\n• Add salary range if possible\n• Use inclusive language"},
				{"hiring", "Best hiring practices:\n• Define clear requirements\n• Use structured interviews\n• Check references\n• Provide timely feedback\n• Ensure fair evaluation\n• Document decisions"},
				{"screening", "Candidate screening tips:\n• Review resumes carefully\n• Use consistent criteria\n• Conduct phone screenings\n• Test relevant skills\n• Check cultural fit\n• Verify qualifications"},
				{"onboarding", "Effective onboarding:\n• Prepare workspace in advance\n• Create structured plan\n• Assign a buddy/mentor\n• Set clear expectations\n• Provide necessary tools\n• Regular check-ins"},
			},
			Fallbacks: []string{
				"I can assist you with hiring best practices, job posting guidelines, and recruitment strategies. What would you like to know more about?",
				"For detailed information about our hiring solutions, please contact our support team or check the help section.",
				"I'm here to help with your recruitment needs. Could you provide more details about what you're looking for?",
			},
		},
	}
}
