package services

// Spelling variants that parish clerks used interchangeably. A search for
// one spelling matches all of them.
var givenNameVariants = [][]string{
	{"Annika", "Annicka"},
	{"Brita", "Britta"},
	{"Cajsa", "Kajsa", "Caisa"},
	{"Carl", "Karl"},
	{"Catharina", "Katharina", "Katarina"},
	{"Christina", "Kristina"},
	{"Elisabet", "Elisabeth"},
	{"Erik", "Eric"},
	{"Fredrik", "Fredric"},
	{"Gustaf", "Gustav"},
	{"Halvar", "Halvard"},
	{"Kerstin", "Kjerstin"},
	{"Maja", "Maria"},
	{"Olof", "Olov"},
	{"Oscar", "Oskar"},
	{"Per", "Pär", "Pehr", "Pähr"},
	{"Sofia", "Sophia"},
	{"Ulrika", "Ulrica"},
}

var surnameVariants = [][]string{
	{"Eriksson", "Ersson"},
	{"Eriksdotter", "Ersdotter"},
	{"Olofsson", "Olsson"},
	{"Olofsdotter", "Olsdotter"},
}
