package organ

// entry maps a code or keyword to an organ name and its icon. Tables are
// slices because partial matching returns the first hit in table order.
type entry struct {
	key   string
	organ string
	icon  string
}

// bodyPartTable maps DICOM BodyPartExamined codes.
var bodyPartTable = []entry{
	// Head and brain
	{"BRAIN", "Brain", "🧠"},
	{"HEAD", "Head/Brain", "🧠"},
	{"SKULL", "Skull", "💀"},
	{"CSKULL", "Skull", "💀"},
	{"SINUS", "Sinuses", "👃"},
	{"ORBIT", "Orbit/Eye", "👁️"},
	{"EYE", "Eye", "👁️"},
	{"EAR", "Ear", "👂"},
	{"FACE", "Face", "😊"},
	{"JAW", "Jaw", "🦷"},
	{"TMJOINT", "TMJ Joint", "🦷"},

	// Spine
	{"CSPINE", "Cervical Spine", "🦴"},
	{"TSPINE", "Thoracic Spine", "🦴"},
	{"LSPINE", "Lumbar Spine", "🦴"},
	{"SSPINE", "Sacral Spine", "🦴"},
	{"SPINE", "Spine", "🦴"},
	{"WHOLESPINE", "Whole Spine", "🦴"},

	// Thorax
	{"CHEST", "Chest", "🫁"},
	{"THORAX", "Thorax", "🫁"},
	{"LUNG", "Lung", "🫁"},
	{"HEART", "Heart", "❤️"},
	{"CLAVICLE", "Clavicle", "🦴"},
	{"RIB", "Ribs", "🦴"},
	{"STERNUM", "Sternum", "🦴"},
	{"MEDIASTINUM", "Mediastinum", "🫁"},

	// Abdomen
	{"ABDOMEN", "Abdomen", "🔶"},
	{"LIVER", "Liver", "🟤"},
	{"KIDNEY", "Kidney", "🫘"},
	{"SPLEEN", "Spleen", "🟣"},
	{"PANCREAS", "Pancreas", "🟡"},
	{"GALLBLADDER", "Gallbladder", "🟢"},
	{"STOMACH", "Stomach", "🔴"},
	{"BOWEL", "Bowel", "🟠"},
	{"COLON", "Colon", "🟠"},

	// Pelvis
	{"PELVIS", "Pelvis", "🦴"},
	{"HIP", "Hip", "🦴"},
	{"PROSTATE", "Prostate", "🔵"},
	{"UTERUS", "Uterus", "🟣"},
	{"OVARY", "Ovary", "🟣"},
	{"BLADDER", "Bladder", "🔵"},

	// Upper extremity
	{"SHOULDER", "Shoulder", "💪"},
	{"HUMERUS", "Humerus", "🦴"},
	{"ELBOW", "Elbow", "🦴"},
	{"FOREARM", "Forearm", "💪"},
	{"WRIST", "Wrist", "✋"},
	{"HAND", "Hand", "✋"},
	{"FINGER", "Finger", "👆"},
	{"THUMB", "Thumb", "👍"},

	// Lower extremity
	{"FEMUR", "Femur", "🦴"},
	{"KNEE", "Knee", "🦵"},
	{"TIBIA", "Tibia", "🦴"},
	{"FIBULA", "Fibula", "🦴"},
	{"ANKLE", "Ankle", "🦶"},
	{"FOOT", "Foot", "🦶"},
	{"TOE", "Toe", "🦶"},

	// Neck and throat
	{"NECK", "Neck", "🦒"},
	{"THYROID", "Thyroid", "🦋"},
	{"LARYNX", "Larynx", "🗣️"},
	{"PHARYNX", "Pharynx", "🗣️"},

	// Vascular
	{"AORTA", "Aorta", "❤️"},
	{"CAROTID", "Carotid Artery", "❤️"},
	{"VESSEL", "Blood Vessel", "❤️"},

	{"BREAST", "Breast", "👙"},
	{"ADRENAL", "Adrenal Gland", "🟡"},
}

// descriptionKeywords are matched as lowercase substrings of the series and
// study descriptions.
var descriptionKeywords = []entry{
	{"brain", "Brain", "🧠"},
	{"head", "Head/Brain", "🧠"},
	{"cerebr", "Brain", "🧠"},
	{"cardiac", "Heart", "❤️"},
	{"heart", "Heart", "❤️"},
	{"liver", "Liver", "🟤"},
	{"hepat", "Liver", "🟤"},
	{"renal", "Kidney", "🫘"},
	{"kidney", "Kidney", "🫘"},
	{"lung", "Lung", "🫁"},
	{"pulmon", "Lung", "🫁"},
	{"spine", "Spine", "🦴"},
	{"vertebr", "Spine", "🦴"},
	{"pelv", "Pelvis", "🦴"},
	{"abdom", "Abdomen", "🔶"},
	{"chest", "Chest", "🫁"},
	{"thorax", "Thorax", "🫁"},
	{"knee", "Knee", "🦵"},
	{"shoulder", "Shoulder", "💪"},
	{"hip", "Hip", "🦴"},
	{"hand", "Hand", "✋"},
	{"wrist", "Wrist", "✋"},
	{"foot", "Foot", "🦶"},
	{"ankle", "Ankle", "🦶"},
	{"elbow", "Elbow", "🦴"},
	{"prostat", "Prostate", "🔵"},
	{"breast", "Breast", "👙"},
	{"mamm", "Breast", "👙"},
}

// snapshotFields lists the report labels and their source keywords in
// report order.
var snapshotFields = []struct {
	label   string
	keyword string
}{
	{"Patient Name", "PatientName"},
	{"Patient ID", "PatientID"},
	{"Patient Sex", "PatientSex"},
	{"Patient Age", "PatientAge"},
	{"Study Date", "StudyDate"},
	{"Study Description", "StudyDescription"},
	{"Series Description", "SeriesDescription"},
	{"Body Part Examined", "BodyPartExamined"},
	{"Modality", "Modality"},
	{"Manufacturer", "Manufacturer"},
	{"Station Name", "StationName"},
	{"Protocol Name", "ProtocolName"},
	{"Sequence Name", "SequenceName"},
}
