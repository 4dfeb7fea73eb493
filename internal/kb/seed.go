package kb

// Seed returns the built-in starter knowledge base. It is intentionally a
// seed, not an authority: the feedback loop grows it over time and the
// persisted JSON document on disk is the source of truth once written.
func Seed() *KnowledgeBase {
	return &KnowledgeBase{
		CarMakes: map[string]*Make{
			"מזדה": {
				English:       "Mazda",
				Confidence:    0.95,
				Aliases:       []string{"מאזדה", "מאזדא", "mazda"},
				ParentCompany: "Independent",
				Country:       "Japan",
			},
			"טויוטה": {
				English:       "Toyota",
				Confidence:    0.95,
				Aliases:       []string{"טויוטא", "toyota"},
				ParentCompany: "Toyota Motor Corporation",
				Country:       "Japan",
			},
			"יונדאי": {
				English:       "Hyundai",
				Confidence:    0.95,
				Aliases:       []string{"יונדאיי", "hyundai"},
				ParentCompany: "Hyundai Motor Group",
				Country:       "South Korea",
			},
			"קיה": {
				English:       "Kia",
				Confidence:    0.95,
				Aliases:       []string{"קיאה", "kia"},
				ParentCompany: "Hyundai Motor Group",
				Country:       "South Korea",
			},
			"סקודה": {
				English:       "Skoda",
				Confidence:    0.95,
				Aliases:       []string{"סקודא", "škoda", "skoda"},
				ParentCompany: "Volkswagen Group",
				Country:       "Czech Republic",
			},
			"פורד":      {English: "Ford", Confidence: 0.95, Aliases: []string{"ford"}},
			"סוזוקי":    {English: "Suzuki", Confidence: 0.95, Aliases: []string{"suzuki"}},
			"ניסאן":     {English: "Nissan", Confidence: 0.95, Aliases: []string{"ניסן", "nissan"}},
			"הונדה":     {English: "Honda", Confidence: 0.95, Aliases: []string{"honda"}},
			"מיצובישי":  {English: "Mitsubishi", Confidence: 0.95, Aliases: []string{"mitsubishi"}},
			"ב.מ.וו":    {English: "BMW", Confidence: 0.95, Aliases: []string{"במוו", "bmw"}},
			"רנו":       {English: "Renault", Confidence: 0.95, Aliases: []string{"renault"}},
			"פיג'ו":     {English: "Peugeot", Confidence: 0.95, Aliases: []string{"פגו", "פיגו", "peugeot"}},
			"סיטרואן":   {English: "Citroen", Confidence: 0.95, Aliases: []string{"citroen", "citroën"}},
			"אאודי":     {English: "Audi", Confidence: 0.95, Aliases: []string{"אודי", "audi"}},
			"מרצדס":     {English: "Mercedes", Confidence: 0.95, Aliases: []string{"מרצדס בנץ", "mercedes", "mercedes-benz"}},
			"פולקסווגן": {English: "Volkswagen", Confidence: 0.95, Aliases: []string{"פולקסוואגן", "וולקסווגן", "volkswagen", "vw"}},
			"סובארו":    {English: "Subaru", Confidence: 0.95, Aliases: []string{"subaru"}},
			"דייהטסו":   {English: "Daihatsu", Confidence: 0.95, Aliases: []string{"daihatsu"}},
			"שברולט":    {English: "Chevrolet", Confidence: 0.95, Aliases: []string{"שבראולט", "chevrolet", "chevy"}},
			"אופל":      {English: "Opel", Confidence: 0.95, Aliases: []string{"opel"}},
			"איסוזו":    {English: "Isuzu", Confidence: 0.95, Aliases: []string{"isuzu"}},
			"לנדרובר":   {English: "Land Rover", Confidence: 0.95, Aliases: []string{"לנד רובר", "land rover"}},
			"לקסוס":     {English: "Lexus", Confidence: 0.95, Aliases: []string{"lexus"}},
			"וולוו":     {English: "Volvo", Confidence: 0.95, Aliases: []string{"volvo"}},
			"פיאט":      {English: "Fiat", Confidence: 0.95, Aliases: []string{"fiat"}},
			"אלפא רומאו": {
				English: "Alfa Romeo", Confidence: 0.95,
				Aliases: []string{"אלפא", "alfa", "alfa romeo"},
			},
		},

		CarModels: map[string]*Model{
			"קורולה": {
				English:       "Corolla",
				Confidence:    0.95,
				Make:          "Toyota",
				Aliases:       []string{"corolla"},
				BodyStyles:    []string{"sedan", "hatchback", "wagon"},
				PopularYears:  []int{1990, 2020},
				CommonEngines: []string{"1.6", "1.8", "2.0"},
			},
			"אוקטביה": {
				English:       "Octavia",
				Confidence:    0.95,
				Make:          "Skoda",
				Aliases:       []string{"octavia"},
				BodyStyles:    []string{"sedan", "wagon"},
				PopularYears:  []int{2000, 2022},
				CommonEngines: []string{"1.4", "1.8", "2.0"},
			},
			"פביה":        {English: "Fabia", Confidence: 0.95, Make: "Skoda", Aliases: []string{"fabia"}},
			"פוקוס":       {English: "Focus", Confidence: 0.95, Make: "Ford", Aliases: []string{"focus"}},
			"אקסנט":       {English: "Accent", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"accent"}},
			"לנסר":        {English: "Lancer", Confidence: 0.95, Make: "Mitsubishi", Aliases: []string{"lancer"}},
			"גולף":        {English: "Golf", Confidence: 0.95, Make: "Volkswagen", Aliases: []string{"golf"}},
			"פולו":        {English: "Polo", Confidence: 0.95, Make: "Volkswagen", Aliases: []string{"polo"}},
			"ראב 4":       {English: "RAV4", Confidence: 0.95, Make: "Toyota", Aliases: []string{"rav4", "rav 4"}},
			"קרוז":        {English: "Cruze", Confidence: 0.95, Make: "Chevrolet", Aliases: []string{"cruze"}},
			"לאון":        {English: "Leon", Confidence: 0.95, Make: "Seat", Aliases: []string{"leon"}},
			"קודיאק":      {English: "Kodiaq", Confidence: 0.95, Make: "Skoda", Aliases: []string{"kodiaq"}},
			"סנטה פה":     {English: "Santa Fe", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"santa fe"}},
			"טוסון":       {English: "Tucson", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"tucson"}},
			"סורנטו":      {English: "Sorento", Confidence: 0.95, Make: "Kia", Aliases: []string{"sorento"}},
			"ספורטאג":     {English: "Sportage", Confidence: 0.95, Make: "Kia", Aliases: []string{"sportage"}},
			"קנגו":        {English: "Kangoo", Confidence: 0.95, Make: "Renault", Aliases: []string{"kangoo"}},
			"מגאן":        {English: "Megane", Confidence: 0.95, Make: "Renault", Aliases: []string{"megane"}},
			"קליאו":       {English: "Clio", Confidence: 0.95, Make: "Renault", Aliases: []string{"clio"}},
			"לוגן":        {English: "Logan", Confidence: 0.95, Make: "Dacia", Aliases: []string{"logan"}},
			"ג'טה":        {English: "Jetta", Confidence: 0.95, Make: "Volkswagen", Aliases: []string{"jetta"}},
			"פסאט":        {English: "Passat", Confidence: 0.95, Make: "Volkswagen", Aliases: []string{"passat"}},
			"גרנד צ'רוקי": {English: "Grand Cherokee", Confidence: 0.95, Make: "Jeep", Aliases: []string{"grand cherokee"}},
			"קורסה":       {English: "Corsa", Confidence: 0.95, Make: "Opel", Aliases: []string{"corsa"}},
			"אסטרה":       {English: "Astra", Confidence: 0.95, Make: "Opel", Aliases: []string{"astra"}},
			"רפיד":        {English: "Rapid", Confidence: 0.95, Make: "Skoda", Aliases: []string{"rapid"}},
			"סופרב":       {English: "Superb", Confidence: 0.95, Make: "Skoda", Aliases: []string{"superb"}},
			"איביזה":      {English: "Ibiza", Confidence: 0.95, Make: "Seat", Aliases: []string{"ibiza"}},
			"טוארג":       {English: "Touareg", Confidence: 0.95, Make: "Volkswagen", Aliases: []string{"touareg"}},
			"טיגואן":      {English: "Tiguan", Confidence: 0.95, Make: "Volkswagen", Aliases: []string{"tiguan"}},
			"I10":         {English: "i10", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"i10"}},
			"I20":         {English: "i20", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"i20"}},
			"I25":         {English: "i25", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"i25"}},
			"I30":         {English: "i30", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"i30"}},
			"I35":         {English: "i35", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"i35"}},
			"IX35":        {English: "ix35", Confidence: 0.95, Make: "Hyundai", Aliases: []string{"ix35"}},
			"SX4":         {English: "SX4", Confidence: 0.95, Make: "Suzuki", Aliases: []string{"sx4"}},
			"CX5":         {English: "CX-5", Confidence: 0.95, Make: "Mazda", Aliases: []string{"cx5", "cx-5"}},
			"סיויק":       {English: "Civic", Confidence: 0.95, Make: "Honda", Aliases: []string{"civic"}},
		},

		PartCategories: map[string]*Category{
			"פילטר": {
				English:        "Filter",
				Confidence:     0.95,
				Aliases:        []string{"מסנן", "filter"},
				Subcategories:  []string{"אויר", "שמן", "דלק", "מזגן", "סולר"},
				RelatedSystems: []string{"Engine", "Fuel System", "HVAC"},
			},
			"פ.": {
				English:        "Filter",
				Confidence:     0.95,
				Aliases:        []string{"פילטר", "מסנן", "filter"},
				IsAbbreviation: true,
			},
			"פ.אויר": {
				English:        "Air Filter",
				Confidence:     0.95,
				Aliases:        []string{"פילטר אויר", "מסנן אויר", "air filter"},
				ParentCategory: "Filter",
				RelatedSystems: []string{"Engine", "Intake"},
			},
			"פ.שמן": {
				English:        "Oil Filter",
				Confidence:     0.95,
				Aliases:        []string{"פילטר שמן", "מסנן שמן", "oil filter"},
				ParentCategory: "Filter",
			},
			"פ.דלק": {
				English:        "Fuel Filter",
				Confidence:     0.95,
				Aliases:        []string{"פילטר דלק", "מסנן דלק", "fuel filter"},
				ParentCategory: "Filter",
			},
			"פ.מזגן": {
				English:        "AC Filter",
				Confidence:     0.95,
				Aliases:        []string{"פילטר מזגן", "מסנן מזגן", "ac filter", "cabin filter"},
				ParentCategory: "Filter",
			},
			"פ.סולר": {
				English:        "Diesel Filter",
				Confidence:     0.95,
				Aliases:        []string{"פילטר סולר", "מסנן סולר", "diesel filter"},
				ParentCategory: "Filter",
			},
			"בולם": {
				English:         "Shock Absorber",
				Confidence:      0.95,
				Aliases:         []string{"shock", "shock absorber", "strut"},
				RelatedSystems:  []string{"Suspension"},
				CommonLocations: []string{"Front", "Rear"},
			},
			"בולם קדמי":  {English: "Front Shock Absorber", Confidence: 0.95, Aliases: []string{"front shock", "front shock absorber"}},
			"בולם אחורי": {English: "Rear Shock Absorber", Confidence: 0.95, Aliases: []string{"rear shock", "rear shock absorber"}},
			"שמן":        {English: "Oil", Confidence: 0.95, Aliases: []string{"oil"}},
			"רפידות":     {English: "Brake Pads", Confidence: 0.95, Aliases: []string{"רפידות בלם", "brake pads"}},
			"דיסק":       {English: "Disc", Confidence: 0.95, Aliases: []string{"disc", "disk"}},
			"דסקיות":     {English: "Discs", Confidence: 0.95, Aliases: []string{"discs", "disks"}},
			"דסקיות קדמי": {
				English: "Front Discs", Confidence: 0.95,
				Aliases: []string{"דיסקים קדמיים", "front discs"},
			},
			"דסקיות אחורי": {
				English: "Rear Discs", Confidence: 0.95,
				Aliases: []string{"דיסקים אחוריים", "rear discs"},
			},
			"צלחת":             {English: "Plate", Confidence: 0.95, Aliases: []string{"plate"}},
			"צלחות":            {English: "Plates", Confidence: 0.95, Aliases: []string{"plates"}},
			"אטם":              {English: "Gasket", Confidence: 0.95, Aliases: []string{"gasket", "seal"}},
			"אטם ראש":          {English: "Head Gasket", Confidence: 0.95, Aliases: []string{"head gasket"}},
			"אטם מכסה שסטומים": {English: "Valve Cover Gasket", Confidence: 0.95, Aliases: []string{"valve cover gasket"}},
			"מצמד":             {English: "Clutch", Confidence: 0.95, Aliases: []string{"clutch"}},
			"טרמוסטט":          {English: "Thermostat", Confidence: 0.95, Aliases: []string{"thermostat"}},
			"משולש":            {English: "Triangle Arm", Confidence: 0.95, Aliases: []string{"control arm", "triangle arm"}},
			"משולש עליון":      {English: "Upper Control Arm", Confidence: 0.95, Aliases: []string{"upper control arm"}},
			"משולש תחתון":      {English: "Lower Control Arm", Confidence: 0.95, Aliases: []string{"lower control arm"}},
			"זרוע":             {English: "Arm", Confidence: 0.95, Aliases: []string{"arm"}},
			"זרוע הגה":         {English: "Steering Arm", Confidence: 0.95, Aliases: []string{"steering arm", "tie rod"}},
			"מייצב":            {English: "Stabilizer", Confidence: 0.95, Aliases: []string{"stabilizer", "sway bar"}},
			"ג.מייצב":          {English: "Stabilizer Link", Confidence: 0.95, Aliases: []string{"stabilizer link", "sway bar link"}},
			"גלגלת":            {English: "Pulley", Confidence: 0.95, Aliases: []string{"pulley"}},
			"כוהל":             {English: "Coolant", Confidence: 0.95, Aliases: []string{"coolant", "antifreeze"}},
			"חיישן":            {English: "Sensor", Confidence: 0.95, Aliases: []string{"sensor"}},
			"ח.חמצן":           {English: "Oxygen Sensor", Confidence: 0.95, Aliases: []string{"oxygen sensor", "o2 sensor"}},
			"ח.קראנק":          {English: "Crankshaft Sensor", Confidence: 0.95, Aliases: []string{"crankshaft position sensor", "crank sensor"}},
			"מיסב":             {English: "Bearing", Confidence: 0.95, Aliases: []string{"bearing"}},
			"אנטרקולר":         {English: "Intercooler", Confidence: 0.95, Aliases: []string{"intercooler"}},
			"רדיאטור":          {English: "Radiator", Confidence: 0.95, Aliases: []string{"radiator"}},
			"תומך":             {English: "Support", Confidence: 0.95, Aliases: []string{"support", "mount"}},
			"ת.מנוע":           {English: "Engine Mount", Confidence: 0.95, Aliases: []string{"engine mount", "motor mount"}},
			"ת.משולש":          {English: "Control Arm Bushing", Confidence: 0.95, Aliases: []string{"control arm bushing"}},
			"גומי":             {English: "Rubber", Confidence: 0.95, Aliases: []string{"rubber"}},
			"קפיץ":             {English: "Spring", Confidence: 0.95, Aliases: []string{"spring"}},
			"מ.מים":            {English: "Water Pump", Confidence: 0.95, Aliases: []string{"water pump"}},
			"קולר":             {English: "Cooler", Confidence: 0.95, Aliases: []string{"cooler"}},
			"מ.דלק":            {English: "Fuel Pump", Confidence: 0.95, Aliases: []string{"fuel pump"}},
			"מ.מייצב":          {English: "Stabilizer Link", Confidence: 0.95, Aliases: []string{"stabilizer link"}},
			"צינור":            {English: "Pipe", Confidence: 0.95, Aliases: []string{"pipe", "hose"}},
			"צינור מים":        {English: "Water Pipe", Confidence: 0.95, Aliases: []string{"water pipe", "water hose"}},
			"צלב":              {English: "Universal Joint", Confidence: 0.95, Aliases: []string{"universal joint", "u-joint"}},
			"יוניט":            {English: "Unit", Confidence: 0.95, Aliases: []string{"unit", "sensor"}},
			"יוניט חום":        {English: "Temperature Sensor", Confidence: 0.95, Aliases: []string{"temperature sensor", "temp sensor"}},
			"יוניט שמן":        {English: "Oil Pressure Sensor", Confidence: 0.95, Aliases: []string{"oil pressure sensor"}},
			"יוניט בלם":        {English: "Brake Switch", Confidence: 0.95, Aliases: []string{"brake light switch"}},
			"ציריה":            {English: "CV Axle", Confidence: 0.95, Aliases: []string{"cv axle", "drive shaft"}},
			"פעמון צריה":       {English: "CV Boot", Confidence: 0.95, Aliases: []string{"cv boot"}},
			"בוקסה":            {English: "Bushing", Confidence: 0.95, Aliases: []string{"bushing"}},
			"גל":               {English: "Shaft", Confidence: 0.95, Aliases: []string{"shaft"}},
		},

		CompatibilityRules: []CompatibilityRule{
			{
				RuleName:         "engine_displacement_validation",
				Description:      "Validates that engine displacement matches the model",
				Condition:        "engine_displacement AND car_model",
				ValidationScript: "validate_displacement_model_match",
			},
			{
				RuleName:         "year_model_validation",
				Description:      "Validates that year range makes sense for the model",
				Condition:        "year_from AND car_model",
				ValidationScript: "validate_year_model_match",
			},
		},

		SpecialPatterns: []SpecialPattern{
			{
				Name:        "year_range",
				Regex:       `(?:מ|מודל\s*|משנת\s*)(\d{2})[-\s]?(?:עד|ו|-)?\s*(?:שנת\s*)?(\d{2})?`,
				Description: "Year range with מ (from) and עד (to)",
			},
			{
				Name:        "single_year",
				Regex:       `(?:שנת|מודל)\s*(\d{4}|\d{2})`,
				Description: "Single year specification",
			},
			{
				Name:        "displacement",
				Regex:       `נפח\s*(\d+\.\d+|\d+)`,
				Description: "Engine displacement",
			},
			{
				Name:        "specific_model",
				Regex:       `(?:דגם|מודל)\s*([A-Za-z0-9]+)`,
				Description: "Specific model code",
			},
			{
				Name:        "wheel_drive",
				Regex:       `(4x4|4x2|2x4|AWD|RWD|FWD)`,
				Description: "Type of wheel drive",
			},
			{
				Name:        "brake_disc_size",
				Regex:       `(\d{3})(?:\s*(?:מ"מ|mm))`,
				Description: "Brake disc diameter in mm",
			},
			{
				Name:        "thread_size",
				Regex:       `M(\d+)x(\d+\.?\d*)`,
				Description: "Thread size (e.g., M8x1.25)",
			},
			{
				Name:        "part_dimensions",
				Regex:       `(\d+(?:\.\d+)?)\s*[xX×]\s*(\d+(?:\.\d+)?)\s*(?:[xX×]\s*(\d+(?:\.\d+)?))?`,
				Description: "Part dimensions",
			},
		},

		Abbreviations: map[string]string{
			"פ.": "פילטר",
			"ח.": "חיישן",
			"ת.": "תומך",
			"ג.": "גומי",
			"מ.": "משאבת",
		},

		ComponentLocations: map[string]string{
			"קדמי":  "Front",
			"אחורי": "Rear",
			"ימין":  "Right",
			"שמאל":  "Left",
			"עליון": "Upper",
			"תחתון": "Lower",
		},

		EngineCodes: map[string]*EngineCode{
			"CBZ": {Make: "Volkswagen", Displacement: "1.2", FuelType: "Petrol", Years: []int{2009, 2015}},
			"CDA": {Make: "Volkswagen", Displacement: "1.8", FuelType: "Petrol", Years: []int{2007, 2014}},
			"CJS": {Make: "Volkswagen", Displacement: "1.8", FuelType: "Petrol", Years: []int{2013, 2020}},
			"CAX": {Make: "Volkswagen", Displacement: "1.4", FuelType: "Petrol", Years: []int{2008, 2014}},
			"CAV": {Make: "Volkswagen", Displacement: "1.4", FuelType: "Petrol", Years: []int{2007, 2012}},
			"BSE": {Make: "Volkswagen", Displacement: "1.6", FuelType: "Petrol", Years: []int{2004, 2012}},
			"BTS": {Make: "Volkswagen", Displacement: "1.6", FuelType: "Petrol", Years: []int{2004, 2010}},
			"CJZ": {Make: "Volkswagen", Displacement: "1.2", FuelType: "Petrol", Years: []int{2013, 2018}},
			"TDI": {Make: "Volkswagen", Displacement: "Various", FuelType: "Diesel", Years: []int{1995, 2023}},
		},

		SystemsHierarchy: map[string][]string{
			"Engine":       {"Air Intake", "Fuel System", "Cooling", "Lubrication", "Exhaust", "Electrical"},
			"Transmission": {"Manual", "Automatic", "Clutch", "Driveshaft"},
			"Suspension":   {"Shocks", "Springs", "Control Arms", "Stabilizers", "Bushings"},
			"Brakes":       {"Discs", "Pads", "Calipers", "Brake Lines", "ABS"},
			"Electrical":   {"Battery", "Alternator", "Starter", "Lighting", "Sensors"},
			"Body":         {"Exterior", "Interior", "Chassis", "Glass"},
			"HVAC":         {"Heating", "Air Conditioning", "Ventilation"},
		},

		ErrorPatterns: map[string][]string{
			"swapped_letters":  {"פליטר/פילטר", "רדיטאור/רדיאטור"},
			"forgotten_spaces": {"מזדה3/מזדה 3", "פולו1.4/פולו 1.4"},
			"typos": {
				"סקדוה/סקודה",
				"קרולה/קורולה",
				"פילתר/פילטר",
				"דיסקות/דסקיות",
				"דיסקים/דסקיות",
				"בולים/בולם",
				"היונדאי/יונדאי",
			},
		},
	}
}
